// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func testBackends(t *testing.T) map[string]Storage {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return map[string]Storage{
		"memory": NewMemoryStorage(16),
		"file":   fs,
	}
}

func TestStoreLoad(t *testing.T) {
	ctx := context.Background()

	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			data := []byte("serialized ciphertext payload")
			handle, err := s.Store(ctx, data)
			require.NoError(t, err)
			require.True(t, handle.Valid())
			require.Equal(t, ComputeHandle(data), handle)

			loaded, err := s.Load(ctx, handle)
			require.NoError(t, err)
			require.Equal(t, data, loaded)

			exists, err := s.Exists(ctx, handle)
			require.NoError(t, err)
			require.True(t, exists)
		})
	}
}

func TestStoreDedup(t *testing.T) {
	ctx := context.Background()

	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			data := []byte("same bytes twice")
			h1, err := s.Store(ctx, data)
			require.NoError(t, err)
			h2, err := s.Store(ctx, data)
			require.NoError(t, err)
			require.Equal(t, h1, h2)
		})
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			handle, err := s.Store(ctx, []byte("to delete"))
			require.NoError(t, err)

			require.NoError(t, s.Delete(ctx, handle))

			_, err = s.Load(ctx, handle)
			require.ErrorIs(t, err, ErrNotFound)

			exists, err := s.Exists(ctx, handle)
			require.NoError(t, err)
			require.False(t, exists)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()
	missing := ComputeHandle([]byte("never stored"))

	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			_, err := s.Load(ctx, missing)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestInvalidHandle(t *testing.T) {
	ctx := context.Background()

	for name, s := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			for _, h := range []Handle{"", "short", Handle("zz" + string(ComputeHandle(nil))[2:] + "x")} {
				_, err := s.Load(ctx, h)
				require.ErrorIs(t, err, ErrInvalidHandle)
			}
		})
	}
}

func TestHandleValid(t *testing.T) {
	require.True(t, ComputeHandle([]byte("x")).Valid())
	require.False(t, Handle("").Valid())
	require.False(t, Handle("abc").Valid())
	// Right length, non-hex characters.
	bad := make([]byte, 64)
	for i := range bad {
		bad[i] = 'z'
	}
	require.False(t, Handle(bad).Valid())
}

func TestMemoryStorageCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(0) // zero capacity

	_, err := s.Store(ctx, []byte("does not fit"))
	require.ErrorIs(t, err, ErrStorageFull)
}
