// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package shortint

import (
	"fmt"

	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// ClientKey holds the secret key material for a parameter set. It encrypts
// plaintexts and decrypts ciphertexts; it is never needed for homomorphic
// evaluation. Keep it caller-scoped and out of logs.
type ClientKey struct {
	params    Parameters
	sk        *rlwe.SecretKey
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor
	ringQ     *ring.Ring
}

// Parameters returns the parameter set this key is bound to.
func (ck *ClientKey) Parameters() Parameters {
	return ck.params
}

// Encrypt encrypts a message in [0, 2^MessageBits). Out-of-range input fails
// with ErrPlaintextOutOfRange. The fresh ciphertext's degree is the maximal
// message value, 2^MessageBits-1.
func (ck *ClientKey) Encrypt(message uint64) (*Ciphertext, error) {
	if message >= ck.params.MessageModulus() {
		return nil, fmt.Errorf("%w: %d not in [0, %d)",
			ErrPlaintextOutOfRange, message, ck.params.MessageModulus())
	}

	pt := rlwe.NewPlaintext(ck.params.paramsLWE, ck.params.paramsLWE.MaxLevel())
	pt.Value.Coeffs[0][0] = (message * ck.params.Delta()) % ck.params.Q()
	ck.ringQ.NTT(pt.Value, pt.Value)

	ct := rlwe.NewCiphertext(ck.params.paramsLWE, 1, ck.params.paramsLWE.MaxLevel())
	if err := ck.encryptor.Encrypt(pt, ct); err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	return &Ciphertext{
		ct:     ct,
		degree: ck.params.MaxMessage(),
	}, nil
}

// Decrypt returns the message a ciphertext encrypts, reduced modulo the
// message space. The degree field is ignored. A decoded plaintext with the
// padding bit set means the noise crossed the correctness bound, reported as
// ErrDecryptionNoiseOverflow.
func (ck *ClientKey) Decrypt(ct *Ciphertext) (uint64, error) {
	v, err := ck.DecryptMessageAndCarry(ct)
	if err != nil {
		return 0, err
	}
	return v % ck.params.MessageModulus(), nil
}

// DecryptMessageAndCarry returns the full message-and-carry plaintext
// without the final message-modulus reduction.
func (ck *ClientKey) DecryptMessageAndCarry(ct *Ciphertext) (uint64, error) {
	if !ct.wellFormed(ck.params) {
		return 0, fmt.Errorf("%w: decrypt", ErrMalformedCiphertext)
	}

	pt := rlwe.NewPlaintext(ck.params.paramsLWE, ct.ct.Level())
	ck.decryptor.Decrypt(ct.ct, pt)

	if pt.IsNTT {
		ck.ringQ.INTT(pt.Value, pt.Value)
	}

	c := pt.Value.Coeffs[0][0]
	total := ck.params.TotalModulus()

	// Round to the nearest multiple of delta. Values land in [0, 2*total);
	// the upper half is the padding region that correct ciphertexts never
	// reach.
	scaled := float64(c) * float64(2*total) / float64(ck.params.Q())
	v := uint64(scaled+0.5) % (2 * total)

	if v >= total {
		return 0, fmt.Errorf("%w: decoded %d outside plaintext space [0, %d)",
			ErrDecryptionNoiseOverflow, v, total)
	}

	return v, nil
}
