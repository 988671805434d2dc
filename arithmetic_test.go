// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package shortint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	ck, sk := testKeyPair(t)

	a, err := ck.Encrypt(2)
	require.NoError(t, err)
	b, err := ck.Encrypt(3)
	require.NoError(t, err)

	sum, err := sk.Add(a, b)
	require.NoError(t, err)
	require.Equal(t, uint64(6), sum.Degree())

	got, err := ck.DecryptMessageAndCarry(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(5), got)

	// Mod the message space the sum wraps.
	msg, err := ck.Decrypt(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(1), msg)

	// Operands are untouched.
	require.Equal(t, uint64(3), a.Degree())
	require.Equal(t, uint64(3), b.Degree())
}

func TestAddCarryFull(t *testing.T) {
	ck, sk := testKeyPair(t)

	a, err := ck.Encrypt(3)
	require.NoError(t, err)
	b, err := ck.Encrypt(3)
	require.NoError(t, err)

	// Three chained additions push the degree past MaxDegree (15).
	sum, err := sk.Add(a, b)
	require.NoError(t, err)
	require.NoError(t, sk.AddAssign(sum, a))
	require.NoError(t, sk.AddAssign(sum, a))
	require.Equal(t, uint64(12), sum.Degree())

	err = sk.AddAssign(sum, b)
	require.NoError(t, err)
	require.Equal(t, uint64(15), sum.Degree())

	err = sk.AddAssign(sum, a)
	require.ErrorIs(t, err, ErrCarryFull)

	// The failed addition leaves the target unchanged.
	require.Equal(t, uint64(15), sum.Degree())
	got, err := ck.DecryptMessageAndCarry(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(15), got)
}

func TestScalarAdd(t *testing.T) {
	ck, sk := testKeyPair(t)

	ct, err := ck.Encrypt(1)
	require.NoError(t, err)

	out, err := sk.ScalarAdd(ct, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(7), out.Degree())

	got, err := ck.DecryptMessageAndCarry(out)
	require.NoError(t, err)
	require.Equal(t, uint64(5), got)

	_, err = sk.ScalarAdd(out, 9)
	require.ErrorIs(t, err, ErrCarryFull)
}

func TestScalarMul(t *testing.T) {
	ck, sk := testKeyPair(t)

	ct, err := ck.Encrypt(3)
	require.NoError(t, err)
	ct.SetDegree(3)

	out, err := sk.ScalarMul(ct, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(12), out.Degree())

	got, err := ck.DecryptMessageAndCarry(out)
	require.NoError(t, err)
	require.Equal(t, uint64(12), got)

	_, err = sk.ScalarMul(ct, 6)
	require.ErrorIs(t, err, ErrCarryFull)
	require.Equal(t, uint64(3), ct.Degree())
}

func TestNonNTTCiphertextMalformed(t *testing.T) {
	ck, sk := testKeyPair(t)

	ct, err := ck.Encrypt(1)
	require.NoError(t, err)
	ct.ct.IsNTT = false

	require.ErrorIs(t, sk.ScalarAddAssign(ct, 1), ErrMalformedCiphertext)
	require.ErrorIs(t, sk.AddAssign(ct, ct), ErrMalformedCiphertext)
	_, err = ck.Decrypt(ct)
	require.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestAddThenExtract(t *testing.T) {
	ck, sk := testKeyPair(t)

	a, err := ck.Encrypt(3)
	require.NoError(t, err)
	b, err := ck.Encrypt(2)
	require.NoError(t, err)

	sum, err := sk.Add(a, b)
	require.NoError(t, err)

	// A message extract empties the carries and resets the degree.
	msgAcc, err := sk.MessageExtractAccumulator()
	require.NoError(t, err)
	require.NoError(t, sk.PBSAssign(msgAcc, sum))
	sum.SetDegree(msgAcc.MaxValue())

	got, err := ck.Decrypt(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(1), got)

	// The extracted result is additive again.
	sum2, err := sk.Add(sum, a)
	require.NoError(t, err)
	got, err = ck.DecryptMessageAndCarry(sum2)
	require.NoError(t, err)
	require.Equal(t, uint64(4), got)
}

func TestBivariatePBS(t *testing.T) {
	ck, sk := testKeyPair(t)

	mul := func(lhs, rhs uint64) uint64 { return (lhs * rhs) % 4 }
	bacc, err := sk.GenerateBivariateAccumulator(mul)
	require.NoError(t, err)
	require.Equal(t, uint64(3), bacc.MaxValue())

	for lhs := uint64(0); lhs < 4; lhs++ {
		for rhs := uint64(0); rhs < 4; rhs++ {
			a, err := ck.Encrypt(lhs)
			require.NoError(t, err)
			b, err := ck.Encrypt(rhs)
			require.NoError(t, err)

			out, err := sk.BivariatePBS(bacc, a, b)
			require.NoError(t, err)
			require.Equal(t, bacc.MaxValue(), out.Degree())

			got, err := ck.Decrypt(out)
			require.NoError(t, err)
			require.Equal(t, mul(lhs, rhs), got, "mul(%d, %d)", lhs, rhs)
		}
	}
}

func TestBivariatePBSRequiresEmptyCarries(t *testing.T) {
	ck, sk := testKeyPair(t)

	bacc, err := sk.GenerateBivariateAccumulator(func(lhs, rhs uint64) uint64 { return lhs })
	require.NoError(t, err)

	a, err := ck.Encrypt(1)
	require.NoError(t, err)
	b, err := ck.Encrypt(1)
	require.NoError(t, err)

	// Fresh ciphertexts carry degree 3, within the message space but at its
	// edge. A sum is not.
	dirty, err := sk.Add(a, b)
	require.NoError(t, err)

	_, err = sk.BivariatePBS(bacc, dirty, b)
	require.ErrorIs(t, err, ErrCarryFull)
	_, err = sk.BivariatePBS(bacc, a, dirty)
	require.ErrorIs(t, err, ErrCarryFull)
}

func TestBitwise(t *testing.T) {
	ck, sk := testKeyPair(t)

	type op struct {
		name string
		run  func(a, b *Ciphertext) (*Ciphertext, error)
		want func(a, b uint64) uint64
	}
	ops := []op{
		{"and", sk.Bitand, func(a, b uint64) uint64 { return a & b }},
		{"or", sk.Bitor, func(a, b uint64) uint64 { return a | b }},
		{"xor", sk.Bitxor, func(a, b uint64) uint64 { return a ^ b }},
	}

	for _, o := range ops {
		t.Run(o.name, func(t *testing.T) {
			for lhs := uint64(0); lhs < 4; lhs++ {
				for rhs := uint64(0); rhs < 4; rhs++ {
					a, err := ck.Encrypt(lhs)
					require.NoError(t, err)
					b, err := ck.Encrypt(rhs)
					require.NoError(t, err)

					out, err := o.run(a, b)
					require.NoError(t, err)

					got, err := ck.Decrypt(out)
					require.NoError(t, err)
					require.Equal(t, o.want(lhs, rhs), got, "%s(%d, %d)", o.name, lhs, rhs)
				}
			}
		})
	}
}

func TestEncryptTrivial(t *testing.T) {
	ck, sk := testKeyPair(t)

	for v := uint64(0); v <= sk.Parameters().MaxDegree(); v++ {
		ct, err := sk.EncryptTrivial(v)
		require.NoError(t, err)
		require.Equal(t, v, ct.Degree())

		got, err := ck.DecryptMessageAndCarry(ct)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}

	_, err := sk.EncryptTrivial(sk.Parameters().MaxDegree() + 1)
	require.ErrorIs(t, err, ErrPlaintextOutOfRange)

	// Trivial ciphertexts compose with real ones.
	a, err := ck.Encrypt(2)
	require.NoError(t, err)
	three, err := sk.EncryptTrivial(3)
	require.NoError(t, err)

	sum, err := sk.Add(a, three)
	require.NoError(t, err)
	got, err := ck.DecryptMessageAndCarry(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(5), got)
}
