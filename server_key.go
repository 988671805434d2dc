// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package shortint

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// ServerKey holds the public evaluation material derived from a ClientKey.
// It performs every homomorphic operation and never sees plaintext.
//
// A ServerKey is safe for concurrent use on independent ciphertexts: the
// evaluation key and every accumulator generated from it are immutable after
// construction, and blind rotation evaluators are drawn from an internal
// pool.
type ServerKey struct {
	params Parameters
	id     [16]byte
	// brk is kept concrete rather than behind the evaluation key set
	// interface so that gob can round-trip it.
	brk      blindrot.MemBlindRotationEvaluationKeySet
	ringQ    *ring.Ring
	ringQLWE *ring.Ring

	evaluators sync.Pool
}

// GenerateKeys samples fresh secret key material for the given parameters
// and derives the matching evaluation key. Entropy exhaustion is reported as
// ErrKeyGenerationFailure; otherwise key generation is infallible for vetted
// parameters.
func GenerateKeys(params Parameters) (*ClientKey, *ServerKey, error) {
	// Vetted sets use the same dimension for the LWE and blind rotation
	// sides, so a single secret key serves both and no key switch is needed.
	kgen := rlwe.NewKeyGenerator(params.paramsBR)
	sk := kgen.GenSecretKeyNew()

	var id [16]byte
	if _, err := rand.Read(id[:]); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailure, err)
	}

	brk := blindrot.GenEvaluationKeyNew(params.paramsBR, sk, params.paramsLWE, sk, params.evkParams)

	clientKey := &ClientKey{
		params:    params,
		sk:        sk,
		encryptor: rlwe.NewEncryptor(params.paramsLWE, sk),
		decryptor: rlwe.NewDecryptor(params.paramsLWE, sk),
		ringQ:     params.paramsLWE.RingQ(),
	}

	serverKey := &ServerKey{
		params:   params,
		id:       id,
		brk:      brk,
		ringQ:    params.paramsBR.RingQ(),
		ringQLWE: params.paramsLWE.RingQ(),
	}
	serverKey.initEvaluatorPool()

	return clientKey, serverKey, nil
}

func (sk *ServerKey) initEvaluatorPool() {
	params := sk.params
	sk.evaluators.New = func() any {
		return blindrot.NewEvaluator(params.paramsBR, params.paramsLWE)
	}
}

// Parameters returns the parameter set this key is bound to.
func (sk *ServerKey) Parameters() Parameters {
	return sk.params
}

// ID returns the hex-encoded identifier binding accumulators to this key.
func (sk *ServerKey) ID() string {
	return hex.EncodeToString(sk.id[:])
}

// PBS applies the accumulator's lookup table to the encrypted message while
// refreshing the ciphertext noise, returning a fresh ciphertext. The input
// is left unchanged.
//
// The output carries the input's degree verbatim: degree is caller-managed
// metadata and only the caller knows which output range applies. Reset it
// after the call, typically to acc.MaxValue().
func (sk *ServerKey) PBS(acc *Accumulator, ctIn *Ciphertext) (*Ciphertext, error) {
	if err := sk.checkAccumulator(acc); err != nil {
		return nil, err
	}
	if !ctIn.wellFormed(sk.params) {
		return nil, fmt.Errorf("%w: pbs input", ErrMalformedCiphertext)
	}

	out, err := sk.bootstrap(ctIn.ct, &acc.testPoly)
	if err != nil {
		return nil, err
	}

	return &Ciphertext{ct: out, degree: ctIn.degree}, nil
}

// PBSAssign is the in-place form of PBS: it overwrites the ciphertext's
// encrypted payload with the bootstrapped result. The degree field is left
// untouched. The target must not be used concurrently for the duration of
// the call.
func (sk *ServerKey) PBSAssign(acc *Accumulator, ct *Ciphertext) error {
	if err := sk.checkAccumulator(acc); err != nil {
		return err
	}
	if !ct.wellFormed(sk.params) {
		return fmt.Errorf("%w: pbs target", ErrMalformedCiphertext)
	}

	out, err := sk.bootstrap(ct.ct, &acc.testPoly)
	if err != nil {
		return err
	}

	ct.ct = out
	return nil
}

// EncryptTrivial creates a noiseless encryption of a clear value, usable as
// an operand in homomorphic operations. The value may occupy the carry
// space; anything above MaxDegree fails with ErrPlaintextOutOfRange. The
// degree is set to the value itself, the tightest possible bound.
func (sk *ServerKey) EncryptTrivial(value uint64) (*Ciphertext, error) {
	if value > sk.params.MaxDegree() {
		return nil, fmt.Errorf("%w: %d not in [0, %d]",
			ErrPlaintextOutOfRange, value, sk.params.MaxDegree())
	}

	ct := rlwe.NewCiphertext(sk.params.paramsLWE, 1, sk.params.paramsLWE.MaxLevel())

	// (0, m*delta): the mask is zero, so the NTT form of the body is the
	// constant vector.
	encoded := (value * sk.params.Delta()) % sk.params.Q()
	for i := range ct.Value[0].Coeffs[0] {
		ct.Value[0].Coeffs[0][i] = encoded
	}
	ct.IsNTT = true

	return &Ciphertext{ct: ct, degree: value}, nil
}

func (sk *ServerKey) checkAccumulator(acc *Accumulator) error {
	if acc == nil {
		return fmt.Errorf("%w: nil accumulator", ErrAccumulatorKeyMismatch)
	}
	if acc.keyID != sk.id {
		return fmt.Errorf("%w: accumulator %s, server key %s",
			ErrAccumulatorKeyMismatch, hex.EncodeToString(acc.keyID[:]), sk.ID())
	}
	return nil
}

// bootstrap runs the blind rotation with the given test polynomial and
// returns a fresh ciphertext under the LWE parameters. With equal dimensions
// and moduli on both sides no sample extraction conversion is needed.
func (sk *ServerKey) bootstrap(ct *rlwe.Ciphertext, testPoly *ring.Poly) (*rlwe.Ciphertext, error) {
	eval := sk.evaluators.Get().(*blindrot.Evaluator)
	defer sk.evaluators.Put(eval)

	results, err := eval.Evaluate(ct, map[int]*ring.Poly{0: testPoly}, sk.brk)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	ctBR, ok := results[0]
	if !ok {
		return nil, fmt.Errorf("bootstrap: no result for slot 0")
	}

	// The evaluator may reuse its output buffers across calls.
	return ctBR.CopyNew(), nil
}
