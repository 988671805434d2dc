// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package shortint

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// ========== Parameters Serialization ==========

func (p Parameters) literal() ParametersLiteral {
	lit := ParametersLiteral{
		LogN:        p.paramsLWE.LogN(),
		Q:           p.Q(),
		MessageBits: p.messageBits,
		CarryBits:   p.carryBits,
	}
	if p.evkParams.BaseTwoDecomposition != nil {
		lit.BaseTwoDecomposition = *p.evkParams.BaseTwoDecomposition
	}
	return lit
}

func serializeParameters(w io.Writer, p Parameters) error {
	lit := p.literal()
	for _, v := range []uint64{
		uint64(lit.LogN),
		lit.Q,
		uint64(lit.BaseTwoDecomposition),
		uint64(lit.MessageBits),
		uint64(lit.CarryBits),
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func deserializeParameters(r io.Reader) (Parameters, error) {
	var fields [5]uint64
	for i := range fields {
		if err := binary.Read(r, binary.LittleEndian, &fields[i]); err != nil {
			return Parameters{}, err
		}
	}
	return NewParametersFromLiteral(ParametersLiteral{
		LogN:                 int(fields[0]),
		Q:                    fields[1],
		BaseTwoDecomposition: int(fields[2]),
		MessageBits:          int(fields[3]),
		CarryBits:            int(fields[4]),
	})
}

// ========== Ciphertext Serialization ==========

// MarshalBinary serializes the ciphertext, degree included.
func (ct *Ciphertext) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.LittleEndian, ct.degree); err != nil {
		return nil, err
	}

	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(ct.ct); err != nil {
		return nil, fmt.Errorf("serialize ciphertext: %w", err)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes a ciphertext produced by MarshalBinary.
func (ct *Ciphertext) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)

	if err := binary.Read(buf, binary.LittleEndian, &ct.degree); err != nil {
		return fmt.Errorf("%w: truncated header", ErrMalformedCiphertext)
	}

	dec := gob.NewDecoder(buf)
	ct.ct = new(rlwe.Ciphertext)
	if err := dec.Decode(ct.ct); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}

	return nil
}

// ========== Client Key Serialization ==========

// MarshalBinary serializes the client key. The output contains secret
// material; handle it accordingly.
func (ck *ClientKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	if err := serializeParameters(&buf, ck.params); err != nil {
		return nil, fmt.Errorf("serialize parameters: %w", err)
	}

	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(ck.sk); err != nil {
		return nil, fmt.Errorf("serialize secret key: %w", err)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes a client key produced by MarshalBinary.
func (ck *ClientKey) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)

	params, err := deserializeParameters(buf)
	if err != nil {
		return fmt.Errorf("deserialize parameters: %w", err)
	}

	dec := gob.NewDecoder(buf)
	sk := new(rlwe.SecretKey)
	if err := dec.Decode(sk); err != nil {
		return fmt.Errorf("deserialize secret key: %w", err)
	}

	ck.params = params
	ck.sk = sk
	ck.encryptor = rlwe.NewEncryptor(params.paramsLWE, sk)
	ck.decryptor = rlwe.NewDecryptor(params.paramsLWE, sk)
	ck.ringQ = params.paramsLWE.RingQ()

	return nil
}

// ========== Server Key Serialization ==========

// MarshalBinary serializes the evaluation key material. No secret bits are
// included.
func (sk *ServerKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	if err := serializeParameters(&buf, sk.params); err != nil {
		return nil, fmt.Errorf("serialize parameters: %w", err)
	}
	if _, err := buf.Write(sk.id[:]); err != nil {
		return nil, err
	}

	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(&sk.brk); err != nil {
		return nil, fmt.Errorf("serialize evaluation key: %w", err)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes a server key produced by MarshalBinary.
func (sk *ServerKey) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)

	params, err := deserializeParameters(buf)
	if err != nil {
		return fmt.Errorf("deserialize parameters: %w", err)
	}
	if _, err := io.ReadFull(buf, sk.id[:]); err != nil {
		return fmt.Errorf("deserialize key id: %w", err)
	}

	dec := gob.NewDecoder(buf)
	if err := dec.Decode(&sk.brk); err != nil {
		return fmt.Errorf("deserialize evaluation key: %w", err)
	}

	sk.params = params
	sk.ringQ = params.paramsBR.RingQ()
	sk.ringQLWE = params.paramsLWE.RingQ()
	sk.initEvaluatorPool()

	return nil
}

// ========== Accumulator Serialization ==========

// MarshalBinary serializes the accumulator, key binding included.
func (acc *Accumulator) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	if _, err := buf.Write(acc.keyID[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, acc.maxValue); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(acc.table))); err != nil {
		return nil, err
	}
	for _, v := range acc.table {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}

	if err := serializePoly(&buf, &acc.testPoly); err != nil {
		return nil, fmt.Errorf("serialize test polynomial: %w", err)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes an accumulator produced by MarshalBinary.
func (acc *Accumulator) UnmarshalBinary(data []byte) error {
	buf := bytes.NewReader(data)

	if _, err := io.ReadFull(buf, acc.keyID[:]); err != nil {
		return fmt.Errorf("deserialize key id: %w", err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &acc.maxValue); err != nil {
		return err
	}

	var tableLen uint32
	if err := binary.Read(buf, binary.LittleEndian, &tableLen); err != nil {
		return err
	}
	acc.table = make([]uint64, tableLen)
	for i := range acc.table {
		if err := binary.Read(buf, binary.LittleEndian, &acc.table[i]); err != nil {
			return err
		}
	}

	poly, err := deserializePoly(buf)
	if err != nil {
		return fmt.Errorf("deserialize test polynomial: %w", err)
	}
	acc.testPoly = *poly

	return nil
}

func serializePoly(w io.Writer, poly *ring.Poly) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(poly.Coeffs))); err != nil {
		return err
	}

	for _, coeffs := range poly.Coeffs {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(coeffs))); err != nil {
			return err
		}
		for _, c := range coeffs {
			if err := binary.Write(w, binary.LittleEndian, c); err != nil {
				return err
			}
		}
	}

	return nil
}

func deserializePoly(r io.Reader) (*ring.Poly, error) {
	var numLevels uint32
	if err := binary.Read(r, binary.LittleEndian, &numLevels); err != nil {
		return nil, err
	}

	coeffs := make([][]uint64, numLevels)
	for i := range coeffs {
		var numCoeffs uint32
		if err := binary.Read(r, binary.LittleEndian, &numCoeffs); err != nil {
			return nil, err
		}

		coeffs[i] = make([]uint64, numCoeffs)
		for j := range coeffs[i] {
			if err := binary.Read(r, binary.LittleEndian, &coeffs[i][j]); err != nil {
				return nil, err
			}
		}
	}

	return &ring.Poly{Coeffs: coeffs}, nil
}
