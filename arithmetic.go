// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package shortint

import (
	"fmt"
)

// Leveled operations on shortints. These run on the LWE layer without a
// bootstrap, so they accumulate noise and consume the carry space. Each one
// checks, through the operand degrees, that the result still fits in the
// plaintext space and fails with ErrCarryFull otherwise, leaving the
// operands untouched. A PBS (for example through MessageExtractAccumulator)
// empties the carries again.

// Add returns a fresh ciphertext encrypting the sum of both operands. The
// result's degree is the sum of the operand degrees.
func (sk *ServerKey) Add(ctLeft, ctRight *Ciphertext) (*Ciphertext, error) {
	out := ctLeft.Copy()
	if err := sk.AddAssign(out, ctRight); err != nil {
		return nil, err
	}
	return out, nil
}

// AddAssign adds ctRight into ctLeft.
func (sk *ServerKey) AddAssign(ctLeft, ctRight *Ciphertext) error {
	if !ctLeft.wellFormed(sk.params) || !ctRight.wellFormed(sk.params) {
		return fmt.Errorf("%w: add", ErrMalformedCiphertext)
	}

	degree := ctLeft.degree + ctRight.degree
	if degree > sk.params.MaxDegree() {
		return fmt.Errorf("%w: degree %d+%d exceeds %d",
			ErrCarryFull, ctLeft.degree, ctRight.degree, sk.params.MaxDegree())
	}

	sk.ringQLWE.Add(ctLeft.ct.Value[0], ctRight.ct.Value[0], ctLeft.ct.Value[0])
	sk.ringQLWE.Add(ctLeft.ct.Value[1], ctRight.ct.Value[1], ctLeft.ct.Value[1])
	ctLeft.degree = degree

	return nil
}

// ScalarAdd returns a fresh ciphertext encrypting ct plus a clear scalar.
func (sk *ServerKey) ScalarAdd(ct *Ciphertext, scalar uint64) (*Ciphertext, error) {
	out := ct.Copy()
	if err := sk.ScalarAddAssign(out, scalar); err != nil {
		return nil, err
	}
	return out, nil
}

// ScalarAddAssign adds a clear scalar into ct. The degree grows by the
// scalar.
func (sk *ServerKey) ScalarAddAssign(ct *Ciphertext, scalar uint64) error {
	if !ct.wellFormed(sk.params) {
		return fmt.Errorf("%w: scalar add", ErrMalformedCiphertext)
	}

	degree := ct.degree + scalar
	if degree > sk.params.MaxDegree() {
		return fmt.Errorf("%w: degree %d+%d exceeds %d",
			ErrCarryFull, ct.degree, scalar, sk.params.MaxDegree())
	}

	encoded := (scalar * sk.params.Delta()) % sk.params.Q()
	q := sk.params.Q()

	// Ciphertexts in this package always live in the NTT domain, where a
	// constant occupies every slot. wellFormed enforces the invariant.
	for i := range ct.ct.Value[0].Coeffs[0] {
		ct.ct.Value[0].Coeffs[0][i] = (ct.ct.Value[0].Coeffs[0][i] + encoded) % q
	}
	ct.degree = degree

	return nil
}

// ScalarMul returns a fresh ciphertext encrypting ct times a clear scalar.
func (sk *ServerKey) ScalarMul(ct *Ciphertext, scalar uint64) (*Ciphertext, error) {
	out := ct.Copy()
	if err := sk.ScalarMulAssign(out, scalar); err != nil {
		return nil, err
	}
	return out, nil
}

// ScalarMulAssign multiplies ct by a clear scalar. The degree is multiplied
// by the scalar.
func (sk *ServerKey) ScalarMulAssign(ct *Ciphertext, scalar uint64) error {
	if !ct.wellFormed(sk.params) {
		return fmt.Errorf("%w: scalar mul", ErrMalformedCiphertext)
	}

	degree := ct.degree * scalar
	if degree > sk.params.MaxDegree() {
		return fmt.Errorf("%w: degree %d*%d exceeds %d",
			ErrCarryFull, ct.degree, scalar, sk.params.MaxDegree())
	}

	sk.ringQLWE.MulScalar(ct.ct.Value[0], scalar, ct.ct.Value[0])
	sk.ringQLWE.MulScalar(ct.ct.Value[1], scalar, ct.ct.Value[1])
	ct.degree = degree

	return nil
}

// BivariatePBS packs two carry-free operands into a single plaintext and
// sends it through the bivariate accumulator, returning a fresh ciphertext
// encrypting f(left, right). Unlike univariate PBS the output degree is set
// to the accumulator's maximum: the packing degree has no meaning for the
// caller.
func (sk *ServerKey) BivariatePBS(bacc *BivariateAccumulator, ctLeft, ctRight *Ciphertext) (*Ciphertext, error) {
	if bacc == nil {
		return nil, fmt.Errorf("%w: nil accumulator", ErrAccumulatorKeyMismatch)
	}
	if err := sk.checkAccumulator(bacc.acc); err != nil {
		return nil, err
	}
	if !ctLeft.wellFormed(sk.params) || !ctRight.wellFormed(sk.params) {
		return nil, fmt.Errorf("%w: bivariate pbs", ErrMalformedCiphertext)
	}

	messageModulus := sk.params.MessageModulus()
	if ctLeft.degree >= messageModulus || ctRight.degree >= messageModulus {
		return nil, fmt.Errorf("%w: operands must have empty carries (degrees %d, %d)",
			ErrCarryFull, ctLeft.degree, ctRight.degree)
	}

	packed := ctLeft.Copy()
	if err := sk.ScalarMulAssign(packed, bacc.rightFactor); err != nil {
		return nil, err
	}
	if err := sk.AddAssign(packed, ctRight); err != nil {
		return nil, err
	}

	out, err := sk.bootstrap(packed.ct, &bacc.acc.testPoly)
	if err != nil {
		return nil, err
	}

	return &Ciphertext{ct: out, degree: bacc.acc.maxValue}, nil
}

// Bitand computes the bitwise AND of two encrypted messages with a single
// bootstrap. Both operands must have empty carries.
func (sk *ServerKey) Bitand(ctLeft, ctRight *Ciphertext) (*Ciphertext, error) {
	return sk.bitwise(ctLeft, ctRight, func(a, b uint64) uint64 { return a & b })
}

// Bitor computes the bitwise OR of two encrypted messages with a single
// bootstrap. Both operands must have empty carries.
func (sk *ServerKey) Bitor(ctLeft, ctRight *Ciphertext) (*Ciphertext, error) {
	return sk.bitwise(ctLeft, ctRight, func(a, b uint64) uint64 { return a | b })
}

// Bitxor computes the bitwise XOR of two encrypted messages with a single
// bootstrap. Both operands must have empty carries.
func (sk *ServerKey) Bitxor(ctLeft, ctRight *Ciphertext) (*Ciphertext, error) {
	return sk.bitwise(ctLeft, ctRight, func(a, b uint64) uint64 { return a ^ b })
}

func (sk *ServerKey) bitwise(ctLeft, ctRight *Ciphertext, f func(a, b uint64) uint64) (*Ciphertext, error) {
	bacc, err := sk.GenerateBivariateAccumulator(f)
	if err != nil {
		return nil, err
	}
	return sk.BivariatePBS(bacc, ctLeft, ctRight)
}
