// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package shortint

import (
	"github.com/luxfi/lattice/v7/core/rlwe"
)

// Ciphertext is an encrypted shortint together with its degree.
//
// The degree is a claimed upper bound on the plaintext the ciphertext
// encrypts. It is caller-managed bookkeeping: the engine reads it to decide
// whether leveled operations stay inside the carry space, but never verifies
// it against the encrypted value, and decryption ignores it entirely. After a
// PBS the caller is expected to reset it, typically to the accumulator's
// maximum output value.
type Ciphertext struct {
	ct     *rlwe.Ciphertext
	degree uint64
}

// Degree returns the claimed upper bound on the encrypted plaintext.
func (ct *Ciphertext) Degree() uint64 {
	return ct.degree
}

// SetDegree overwrites the degree. The value is a caller-supplied hint and
// is not validated against the encrypted content.
func (ct *Ciphertext) SetDegree(degree uint64) {
	ct.degree = degree
}

// Copy returns a deep copy of the ciphertext, degree included.
func (ct *Ciphertext) Copy() *Ciphertext {
	return &Ciphertext{
		ct:     ct.ct.CopyNew(),
		degree: ct.degree,
	}
}

// wellFormed reports whether the ciphertext has the structure expected for
// the given parameters: an rlwe ciphertext of rank 1 in dimension N, in the
// NTT domain.
func (ct *Ciphertext) wellFormed(params Parameters) bool {
	if ct == nil || ct.ct == nil {
		return false
	}
	if ct.ct.MetaData == nil || !ct.ct.IsNTT {
		return false
	}
	if len(ct.ct.Value) != 2 {
		return false
	}
	for i := range ct.ct.Value {
		if len(ct.ct.Value[i].Coeffs) == 0 || len(ct.ct.Value[i].Coeffs[0]) != params.N() {
			return false
		}
	}
	return true
}
