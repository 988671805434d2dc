// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package shortint

import "errors"

// Common errors. Every operation in this package fails synchronously with
// one of these sentinels (possibly wrapped); nothing is retried internally.
var (
	// ErrUnsupportedParameters indicates that no vetted parameter tuple
	// exists for the requested (carry, message) shape.
	ErrUnsupportedParameters = errors.New("unsupported parameters")

	// ErrKeyGenerationFailure indicates that the secure random source was
	// unavailable during key generation. Callers may retry after remediation.
	ErrKeyGenerationFailure = errors.New("key generation failure")

	// ErrPlaintextOutOfRange indicates an encryption input outside the
	// message range [0, 2^MessageBits).
	ErrPlaintextOutOfRange = errors.New("plaintext out of range")

	// ErrAccumulatorGenerationFailure indicates a lookup function whose
	// outputs cannot be encoded in this parameter set's plaintext space.
	ErrAccumulatorGenerationFailure = errors.New("accumulator generation failure")

	// ErrAccumulatorKeyMismatch indicates an accumulator used with a server
	// key other than the one that generated it.
	ErrAccumulatorKeyMismatch = errors.New("accumulator key mismatch")

	// ErrMalformedCiphertext indicates a structurally invalid ciphertext.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// ErrDecryptionNoiseOverflow indicates that the ciphertext noise crossed
	// the scheme's correctness bound. This is fatal and not retryable: either
	// the parameters are mismatched or too many leveled operations were
	// applied without a bootstrap.
	ErrDecryptionNoiseOverflow = errors.New("decryption noise overflow")

	// ErrCarryFull indicates a checked leveled operation whose resulting
	// degree would overflow the carry space. Bootstrap first.
	ErrCarryFull = errors.New("carry buffer is full")
)
