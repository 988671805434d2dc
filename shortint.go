// Package shortint implements an FHE scheme for small encrypted integers
// with programmable bootstrapping (PBS).
//
// A shortint ciphertext encrypts a message of 1-3 bits together with carry
// headroom used by leveled arithmetic. The PBS primitive refreshes the
// ciphertext noise and applies an arbitrary lookup table to the encrypted
// message in a single operation, which makes it the workhorse for every
// non-linear computation on shortints.
//
// This implementation is built on luxfi/lattice primitives:
//   - LWE encryption for shortint payloads
//   - RGSW evaluation keys for bootstrapping
//   - Blind rotations for the programmable bootstrap itself
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package shortint

import (
	"fmt"

	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/utils"
)

// Parameters defines a vetted shortint parameter set. It is immutable after
// construction and owned independently of any key derived from it.
type Parameters struct {
	// paramsLWE defines parameters for LWE samples (encrypted shortints)
	paramsLWE rlwe.Parameters
	// paramsBR defines parameters for blind rotation (bootstrapping)
	paramsBR rlwe.Parameters
	// evkParams defines evaluation key decomposition
	evkParams rlwe.EvaluationKeyParameters

	messageBits int
	carryBits   int
}

// ParametersLiteral is a user-friendly parameter specification
type ParametersLiteral struct {
	// LogN is log2 of the lattice dimension (typically 10-11)
	LogN int
	// Q is the ciphertext modulus
	Q uint64
	// BaseTwoDecomposition for the evaluation keys (typically 7-10)
	BaseTwoDecomposition int
	// MessageBits is the number of usable plaintext bits
	MessageBits int
	// CarryBits is the headroom consumed by leveled arithmetic
	CarryBits int
}

// Vetted parameter sets, named after their (message, carry) shape.
//
// All sets use the same dimension and modulus for the LWE and blind rotation
// sides, which removes the key switching step from bootstrapping.
var (
	// ParamMessage1Carry1 encrypts 1 message bit with 1 carry bit.
	// N=1024, Q=134215681
	ParamMessage1Carry1 = ParametersLiteral{
		LogN:                 10,
		Q:                    0x7fff801,
		BaseTwoDecomposition: 7,
		MessageBits:          1,
		CarryBits:            1,
	}

	// ParamMessage2Carry2 encrypts 2 message bits with 2 carry bits.
	// N=2048, Q=~2^54
	ParamMessage2Carry2 = ParametersLiteral{
		LogN:                 11,
		Q:                    0x3FFFFFFFFFC0001,
		BaseTwoDecomposition: 10,
		MessageBits:          2,
		CarryBits:            2,
	}

	// ParamMessage3Carry3 encrypts 3 message bits with 3 carry bits.
	// N=2048, Q=~2^54
	ParamMessage3Carry3 = ParametersLiteral{
		LogN:                 11,
		Q:                    0x3FFFFFFFFFC0001,
		BaseTwoDecomposition: 10,
		MessageBits:          3,
		CarryBits:            3,
	}
)

type paramShape struct {
	carryBits   int
	messageBits int
}

var vettedParams = map[paramShape]ParametersLiteral{
	{1, 1}: ParamMessage1Carry1,
	{2, 2}: ParamMessage2Carry2,
	{3, 3}: ParamMessage3Carry3,
}

// GetParameters returns the vetted parameter set for the requested
// (carryBits, messageBits) shape. Shapes without a vetted tuple fail with
// ErrUnsupportedParameters.
func GetParameters(carryBits, messageBits int) (Parameters, error) {
	lit, ok := vettedParams[paramShape{carryBits, messageBits}]
	if !ok {
		return Parameters{}, fmt.Errorf("%w: no vetted tuple for carry=%d message=%d",
			ErrUnsupportedParameters, carryBits, messageBits)
	}
	return NewParametersFromLiteral(lit)
}

// NewParametersFromLiteral creates Parameters from a literal specification
func NewParametersFromLiteral(lit ParametersLiteral) (params Parameters, err error) {
	if lit.MessageBits < 1 || lit.CarryBits < 0 {
		return Parameters{}, fmt.Errorf("%w: carry=%d message=%d",
			ErrUnsupportedParameters, lit.CarryBits, lit.MessageBits)
	}

	params.paramsLWE, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    lit.LogN,
		Q:       []uint64{lit.Q},
		NTTFlag: true,
	})
	if err != nil {
		return Parameters{}, fmt.Errorf("%w: %v", ErrUnsupportedParameters, err)
	}

	params.paramsBR, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    lit.LogN,
		Q:       []uint64{lit.Q},
		NTTFlag: true,
	})
	if err != nil {
		return Parameters{}, fmt.Errorf("%w: %v", ErrUnsupportedParameters, err)
	}

	params.evkParams = rlwe.EvaluationKeyParameters{
		BaseTwoDecomposition: utils.Pointy(lit.BaseTwoDecomposition),
	}

	params.messageBits = lit.MessageBits
	params.carryBits = lit.CarryBits

	return params, nil
}

// N returns the lattice dimension
func (p Parameters) N() int {
	return p.paramsLWE.N()
}

// Q returns the ciphertext modulus
func (p Parameters) Q() uint64 {
	return p.paramsLWE.Q()[0]
}

// MessageBits returns the number of usable plaintext bits
func (p Parameters) MessageBits() int {
	return p.messageBits
}

// CarryBits returns the number of carry bits
func (p Parameters) CarryBits() int {
	return p.carryBits
}

// MessageModulus returns the size of the message space, 2^MessageBits
func (p Parameters) MessageModulus() uint64 {
	return 1 << p.messageBits
}

// CarryModulus returns the size of the carry space, 2^CarryBits
func (p Parameters) CarryModulus() uint64 {
	return 1 << p.carryBits
}

// TotalModulus returns the full plaintext space, message times carry
func (p Parameters) TotalModulus() uint64 {
	return p.MessageModulus() * p.CarryModulus()
}

// MaxMessage returns the largest encryptable message, MessageModulus-1
func (p Parameters) MaxMessage() uint64 {
	return p.MessageModulus() - 1
}

// MaxDegree returns the largest plaintext representable with the carry
// space included, TotalModulus-1. Leveled operations whose resulting degree
// would exceed this bound require a bootstrap first.
func (p Parameters) MaxDegree() uint64 {
	return p.TotalModulus() - 1
}

// Delta returns the plaintext scaling factor Q/(2*TotalModulus). The factor
// 2 reserves the padding bit required by the negacyclic blind rotation.
func (p Parameters) Delta() uint64 {
	return p.Q() / (2 * p.TotalModulus())
}

// Equal reports whether both parameter sets describe the same shape and
// lattice geometry.
func (p Parameters) Equal(other Parameters) bool {
	return p.messageBits == other.messageBits &&
		p.carryBits == other.carryBits &&
		p.N() == other.N() &&
		p.Q() == other.Q()
}
