// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package shortint

import (
	"fmt"
	"math"

	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// Accumulator is a precomputed lookup table usable as the function argument
// to PBS. It is immutable after construction and bound to the server key
// that generated it; using it with any other key is rejected.
type Accumulator struct {
	table    []uint64
	maxValue uint64
	keyID    [16]byte
	testPoly ring.Poly
}

// Table returns a copy of the sampled lookup values.
func (acc *Accumulator) Table() []uint64 {
	return append([]uint64(nil), acc.table...)
}

// MaxValue returns the maximum output of the lookup function, computed once
// at construction. It is the tightest safe degree for ciphertexts produced
// by this accumulator.
func (acc *Accumulator) MaxValue() uint64 {
	return acc.maxValue
}

// BivariateAccumulator is a lookup table over two shortint operands. The
// left operand is scaled by the right factor before the two are packed into
// a single PBS input.
type BivariateAccumulator struct {
	acc         *Accumulator
	rightFactor uint64
}

// MaxValue returns the maximum output of the lookup function.
func (bacc *BivariateAccumulator) MaxValue() uint64 {
	return bacc.acc.maxValue
}

// GenerateAccumulator builds a lookup table by evaluating f at every message
// in [0, 2^MessageBits) in increasing order. f must be pure and total over
// that domain; it is sampled eagerly, exactly once per index, and never
// called again afterwards.
//
// Any output above MaxDegree cannot be encoded by the bootstrap's output
// encoding and fails with ErrAccumulatorGenerationFailure.
func (sk *ServerKey) GenerateAccumulator(f func(uint64) uint64) (*Accumulator, error) {
	messageModulus := sk.params.MessageModulus()

	table := make([]uint64, messageModulus)
	for i := uint64(0); i < messageModulus; i++ {
		table[i] = f(i)
	}

	// The table is extended periodically over the carry space so that
	// carry-laden inputs still land on f of their message part.
	return sk.newAccumulator(table, func(i uint64) uint64 {
		return table[i%messageModulus]
	})
}

// GenerateBivariateAccumulator builds a lookup table over two message
// operands, f(left, right). Both operands must have empty carries when the
// table is applied; the left one is scaled by the message modulus to pack
// the pair into a single plaintext.
func (sk *ServerKey) GenerateBivariateAccumulator(f func(lhs, rhs uint64) uint64) (*BivariateAccumulator, error) {
	messageModulus := sk.params.MessageModulus()

	table := make([]uint64, sk.params.TotalModulus())
	for i := range table {
		lhs := (uint64(i) / messageModulus) % messageModulus
		rhs := uint64(i) % messageModulus
		table[i] = f(lhs, rhs)
	}

	acc, err := sk.newAccumulator(table, func(i uint64) uint64 {
		return table[i]
	})
	if err != nil {
		return nil, err
	}

	return &BivariateAccumulator{
		acc:         acc,
		rightFactor: messageModulus,
	}, nil
}

// MessageExtractAccumulator returns the accumulator computing
// m -> m mod MessageModulus over the full message-and-carry space. A PBS
// through it clears the carries and refreshes the noise.
func (sk *ServerKey) MessageExtractAccumulator() (*Accumulator, error) {
	messageModulus := sk.params.MessageModulus()

	table := make([]uint64, sk.params.TotalModulus())
	for i := range table {
		table[i] = uint64(i) % messageModulus
	}

	return sk.newAccumulator(table, func(i uint64) uint64 {
		return table[i]
	})
}

// CarryExtractAccumulator returns the accumulator computing
// m -> m / MessageModulus over the full message-and-carry space, isolating
// the carry part of a ciphertext.
func (sk *ServerKey) CarryExtractAccumulator() (*Accumulator, error) {
	messageModulus := sk.params.MessageModulus()

	table := make([]uint64, sk.params.TotalModulus())
	for i := range table {
		table[i] = uint64(i) / messageModulus
	}

	return sk.newAccumulator(table, func(i uint64) uint64 {
		return table[i]
	})
}

// newAccumulator validates the sampled table against the output encoding
// bound and builds the blind rotation test polynomial. rawF extends the
// table over the full plaintext domain [0, TotalModulus).
func (sk *ServerKey) newAccumulator(table []uint64, rawF func(uint64) uint64) (*Accumulator, error) {
	maxDegree := sk.params.MaxDegree()

	var maxValue uint64
	for i, v := range table {
		if v > maxDegree {
			return nil, fmt.Errorf("%w: f(%d)=%d exceeds encodable bound %d",
				ErrAccumulatorGenerationFailure, i, v, maxDegree)
		}
		if v > maxValue {
			maxValue = v
		}
	}

	total := sk.params.TotalModulus()
	half := float64(total) / 2
	scale := rlwe.NewScale(float64(sk.params.Q()) / float64(2*total))

	// The test polynomial argument spans half the torus over [-1, 1], one
	// plaintext per 2/TotalModulus step. A plaintext m lands at
	// x = 2m/TotalModulus while m < TotalModulus/2; above that the
	// negacyclic wrap moves it to x = 2m/TotalModulus - 2 and flips its
	// sign, so the negative branch must negate to compensate.
	testPoly := blindrot.InitTestPolynomial(func(x float64) float64 {
		if x < 0 {
			i := uint64(math.Round((x+2)*half)) % total
			return -float64(rawF(i))
		}
		i := uint64(math.Round(x*half)) % total
		return float64(rawF(i))
	}, scale, sk.ringQ, -1, 1)

	return &Accumulator{
		table:    table,
		maxValue: maxValue,
		keyID:    sk.id,
		testPoly: testPoly,
	}, nil
}
