// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package shortint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCiphertextSerialization(t *testing.T) {
	ck, _ := testKeyPair(t)

	ct, err := ck.Encrypt(2)
	require.NoError(t, err)
	ct.SetDegree(7)

	data, err := ct.MarshalBinary()
	require.NoError(t, err)

	restored := new(Ciphertext)
	require.NoError(t, restored.UnmarshalBinary(data))
	require.Equal(t, uint64(7), restored.Degree())

	got, err := ck.Decrypt(restored)
	require.NoError(t, err)
	require.Equal(t, uint64(2), got)
}

func TestCiphertextUnmarshalMalformed(t *testing.T) {
	ct := new(Ciphertext)
	require.ErrorIs(t, ct.UnmarshalBinary([]byte{1, 2, 3}), ErrMalformedCiphertext)
	require.ErrorIs(t, ct.UnmarshalBinary(make([]byte, 32)), ErrMalformedCiphertext)
}

func TestClientKeySerialization(t *testing.T) {
	ck, sk := testKeyPair(t)

	data, err := ck.MarshalBinary()
	require.NoError(t, err)

	restored := new(ClientKey)
	require.NoError(t, restored.UnmarshalBinary(data))
	require.True(t, restored.Parameters().Equal(ck.Parameters()))

	// The restored key encrypts for the original server key and decrypts
	// what the original client key encrypted.
	ct, err := restored.Encrypt(3)
	require.NoError(t, err)

	acc, err := sk.GenerateAccumulator(func(x uint64) uint64 { return (x + 1) % 4 })
	require.NoError(t, err)
	out, err := sk.PBS(acc, ct)
	require.NoError(t, err)

	got, err := ck.Decrypt(out)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got)
}

func TestServerKeySerialization(t *testing.T) {
	ck, sk := testKeyPair(t)

	data, err := sk.MarshalBinary()
	require.NoError(t, err)

	restored := new(ServerKey)
	require.NoError(t, restored.UnmarshalBinary(data))
	require.Equal(t, sk.ID(), restored.ID())
	require.True(t, restored.Parameters().Equal(sk.Parameters()))

	// Accumulators generated before serialization still match.
	acc, err := sk.GenerateAccumulator(func(x uint64) uint64 { return 3 - x })
	require.NoError(t, err)

	ct, err := ck.Encrypt(1)
	require.NoError(t, err)

	out, err := restored.PBS(acc, ct)
	require.NoError(t, err)

	got, err := ck.Decrypt(out)
	require.NoError(t, err)
	require.Equal(t, uint64(2), got)
}

func TestAccumulatorSerialization(t *testing.T) {
	ck, sk := testKeyPair(t)

	acc, err := sk.GenerateAccumulator(func(x uint64) uint64 { return (x * 2) % 4 })
	require.NoError(t, err)

	data, err := acc.MarshalBinary()
	require.NoError(t, err)

	restored := new(Accumulator)
	require.NoError(t, restored.UnmarshalBinary(data))
	require.Equal(t, acc.Table(), restored.Table())
	require.Equal(t, acc.MaxValue(), restored.MaxValue())

	ct, err := ck.Encrypt(3)
	require.NoError(t, err)

	out, err := sk.PBS(restored, ct)
	require.NoError(t, err)

	got, err := ck.Decrypt(out)
	require.NoError(t, err)
	require.Equal(t, uint64(2), got)
}
