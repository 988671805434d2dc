// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package shortint

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Key generation dominates test runtime, so every test that can share the
// standard 2-bit key pair does.
var testKeys struct {
	once sync.Once
	ck   *ClientKey
	sk   *ServerKey
	err  error
}

func testKeyPair(t *testing.T) (*ClientKey, *ServerKey) {
	t.Helper()
	testKeys.once.Do(func() {
		params, err := GetParameters(2, 2)
		if err != nil {
			testKeys.err = err
			return
		}
		testKeys.ck, testKeys.sk, testKeys.err = GenerateKeys(params)
	})
	require.NoError(t, testKeys.err)
	return testKeys.ck, testKeys.sk
}

func TestGetParameters(t *testing.T) {
	t.Run("Vetted", func(t *testing.T) {
		params, err := GetParameters(2, 2)
		require.NoError(t, err)
		require.Equal(t, 2, params.MessageBits())
		require.Equal(t, 2, params.CarryBits())
		require.Equal(t, uint64(4), params.MessageModulus())
		require.Equal(t, uint64(4), params.CarryModulus())
		require.Equal(t, uint64(16), params.TotalModulus())
		require.Equal(t, uint64(3), params.MaxMessage())
		require.Equal(t, uint64(15), params.MaxDegree())
		require.Equal(t, 2048, params.N())
	})

	t.Run("Unsupported", func(t *testing.T) {
		params, err := GetParameters(7, 9)
		require.ErrorIs(t, err, ErrUnsupportedParameters)
		require.Equal(t, Parameters{}, params)
	})

	t.Run("AllVettedShapesResolve", func(t *testing.T) {
		for shape := range vettedParams {
			params, err := GetParameters(shape.carryBits, shape.messageBits)
			require.NoError(t, err)
			require.Equal(t, shape.messageBits, params.MessageBits())
			require.Equal(t, shape.carryBits, params.CarryBits())
		}
	})
}

func TestEncryptDecrypt(t *testing.T) {
	ck, _ := testKeyPair(t)
	params := ck.Parameters()

	for msg := uint64(0); msg < params.MessageModulus(); msg++ {
		ct, err := ck.Encrypt(msg)
		require.NoError(t, err)
		require.Equal(t, params.MaxMessage(), ct.Degree())

		got, err := ck.Decrypt(ct)
		require.NoError(t, err)
		require.Equal(t, msg, got)
	}
}

func TestEncryptOutOfRange(t *testing.T) {
	ck, _ := testKeyPair(t)

	ct, err := ck.Encrypt(ck.Parameters().MessageModulus())
	require.ErrorIs(t, err, ErrPlaintextOutOfRange)
	require.Nil(t, ct)
}

func TestDegreeBookkeeping(t *testing.T) {
	ck, _ := testKeyPair(t)

	ct, err := ck.Encrypt(1)
	require.NoError(t, err)

	// The degree is an unchecked hint: any value sticks, including ones
	// unrelated to the encrypted content, and decryption never looks at it.
	for _, degree := range []uint64{0, 2, 15, 1 << 40} {
		ct.SetDegree(degree)
		require.Equal(t, degree, ct.Degree())

		got, err := ck.Decrypt(ct)
		require.NoError(t, err)
		require.Equal(t, uint64(1), got)
	}
}

func TestCiphertextCopy(t *testing.T) {
	ck, _ := testKeyPair(t)

	ct, err := ck.Encrypt(2)
	require.NoError(t, err)

	cp := ct.Copy()
	cp.SetDegree(9)
	require.Equal(t, ck.Parameters().MaxMessage(), ct.Degree())

	got, err := ck.Decrypt(cp)
	require.NoError(t, err)
	require.Equal(t, uint64(2), got)
}

func TestDecryptMalformed(t *testing.T) {
	ck, _ := testKeyPair(t)

	_, err := ck.Decrypt(&Ciphertext{})
	require.ErrorIs(t, err, ErrMalformedCiphertext)
}
