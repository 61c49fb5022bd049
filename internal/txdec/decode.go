// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

// Package txdec classifies raw transaction payloads. It recognizes
// exactly one wire shape, a BCS-encoded coin transfer, and extracts its
// recipient, total amount and gas budget for display. Everything else,
// including truncated and adversarial input, is classified as unknown
// with a content digest. Decoding is total: every byte sequence yields a
// value, never a crash and never a partially filled result.
package txdec

import (
	"golang.org/x/crypto/blake2b"

	"github.com/hardsign-dev/hardsign/internal/seed"
)

// Kind tags the decode classification.
type Kind int

const (
	// KindUnknown is the fail-closed arm: anything the decoder could not
	// fully and unambiguously parse.
	KindUnknown Kind = iota

	// KindTransfer is the one recognized wire shape.
	KindTransfer
)

// Parsed is the decode result. Transfer fields are only meaningful when
// Kind is KindTransfer; Digest is always the Blake2b-256 of the full raw
// payload.
type Parsed struct {
	Kind      Kind
	Recipient seed.Address
	Amount    uint64
	MaxGas    uint64
	Digest    [32]byte
}

// Digest computes the content digest of a raw payload. The signer hashes
// the same bytes with the same primitive, so the digest shown to the
// user for blind-signed content is exactly what gets signed.
func Digest(raw []byte) [32]byte {
	return blake2b.Sum256(raw)
}

// Decode classifies a reassembled payload. Any structural violation,
// bounds problem or unsupported variant yields KindUnknown; there is no
// partially recognized result.
func Decode(raw []byte) Parsed {
	p, err := decodeTransfer(raw)
	if err != nil {
		return Parsed{Kind: KindUnknown, Digest: Digest(raw)}
	}
	p.Digest = Digest(raw)
	return p
}

// Limits of the recognized shape. A transfer moves coins to one
// recipient; more inputs than this is not a shape the device can render
// faithfully, so it is not recognized.
const (
	maxSplitAmounts = 8
	addressLen      = 32
)

// BCS enum tags of the recognized shape.
const (
	txDataV1             = 0
	kindProgrammable     = 0
	callArgPure          = 0
	callArgObject        = 1
	objectArgRef         = 0
	objectArgShared      = 1
	cmdTransferObjects   = 1
	cmdSplitCoins        = 2
	argGasCoin           = 0
	argInput             = 1
	argResult            = 2
	argNestedResult      = 3
	expirationNone       = 0
	expirationEpoch      = 1
)

func decodeTransfer(raw []byte) (Parsed, error) {
	r := &reader{data: raw}

	// Intent: scope, version, application identifier.
	if err := r.skip(3); err != nil {
		return Parsed{}, err
	}

	// TransactionData must be the V1 variant.
	if tag, err := r.uleb(); err != nil || tag != txDataV1 {
		return Parsed{}, errTruncated
	}
	// TransactionKind must be a programmable transaction.
	if tag, err := r.uleb(); err != nil || tag != kindProgrammable {
		return Parsed{}, errTruncated
	}

	recipient, recipientIdx, amounts, err := decodeInputs(r)
	if err != nil {
		return Parsed{}, err
	}

	total, err := decodeCommands(r, recipientIdx, amounts)
	if err != nil {
		return Parsed{}, err
	}

	// Sender address; display is keyed to the derivation path, not the
	// embedded sender, so the value is skipped.
	if err := r.skip(addressLen); err != nil {
		return Parsed{}, err
	}

	budget, err := decodeGasData(r)
	if err != nil {
		return Parsed{}, err
	}

	if err := decodeExpiration(r); err != nil {
		return Parsed{}, err
	}

	// Trailing bytes mean this is not the shape we think it is.
	if r.remaining() != 0 {
		return Parsed{}, errTruncated
	}

	var addr seed.Address
	copy(addr[:], recipient)
	return Parsed{
		Kind:      KindTransfer,
		Recipient: addr,
		Amount:    total,
		MaxGas:    budget,
	}, nil
}

// amountInput pairs a split amount with the input slot it occupied.
type amountInput struct {
	amount uint64
	index  uint32
}

// decodeInputs walks the input vector and collects the single recipient
// address plus the u64 amounts. A second recipient, an overlong amount
// list or a missing recipient/amount all reject the shape.
func decodeInputs(r *reader) (recipient []byte, recipientIdx uint32, amounts []amountInput, err error) {
	count, err := r.uleb()
	if err != nil {
		return nil, 0, nil, err
	}

	haveRecipient := false
	for i := uint32(0); i < count; i++ {
		tag, err := r.uleb()
		if err != nil {
			return nil, 0, nil, err
		}
		switch tag {
		case callArgPure:
			n, err := r.uleb()
			if err != nil {
				return nil, 0, nil, err
			}
			switch n {
			case 8:
				amt, err := r.u64()
				if err != nil {
					return nil, 0, nil, err
				}
				if len(amounts) == maxSplitAmounts {
					return nil, 0, nil, errTruncated
				}
				amounts = append(amounts, amountInput{amount: amt, index: i})
			case addressLen:
				if haveRecipient {
					return nil, 0, nil, errTruncated
				}
				recipient, err = r.bytes(addressLen)
				if err != nil {
					return nil, 0, nil, err
				}
				recipientIdx = i
				haveRecipient = true
			default:
				if err := r.skip(int(n)); err != nil {
					return nil, 0, nil, err
				}
			}
		case callArgObject:
			if err := decodeObjectArg(r); err != nil {
				return nil, 0, nil, err
			}
		default:
			return nil, 0, nil, errTruncated
		}
	}

	if !haveRecipient || len(amounts) == 0 {
		return nil, 0, nil, errTruncated
	}
	return recipient, recipientIdx, amounts, nil
}

func decodeObjectArg(r *reader) error {
	tag, err := r.uleb()
	if err != nil {
		return err
	}
	switch tag {
	case objectArgRef:
		return decodeObjectRef(r)
	case objectArgShared:
		// Object id, initial shared version, mutability flag.
		if err := r.skip(addressLen); err != nil {
			return err
		}
		if _, err := r.u64(); err != nil {
			return err
		}
		_, err := r.u8()
		return err
	default:
		return errTruncated
	}
}

func decodeObjectRef(r *reader) error {
	// Object id, sequence number, length-prefixed digest.
	if err := r.skip(addressLen); err != nil {
		return err
	}
	if _, err := r.u64(); err != nil {
		return err
	}
	n, err := r.uleb()
	if err != nil {
		return err
	}
	return r.skip(int(n))
}

// decodeCommands checks the command list implements exactly "split from
// the gas coin, transfer to the recipient input" and sums the moved
// amounts with overflow checking.
func decodeCommands(r *reader, recipientIdx uint32, amounts []amountInput) (uint64, error) {
	count, err := r.uleb()
	if err != nil {
		return 0, err
	}

	var total uint64
	transferred := false
	for i := uint32(0); i < count; i++ {
		tag, err := r.uleb()
		if err != nil {
			return 0, err
		}
		switch tag {
		case cmdTransferObjects:
			if transferred {
				return 0, errTruncated
			}
			n, err := r.uleb()
			if err != nil || n != 1 {
				return 0, errTruncated
			}
			if err := skipArgument(r); err != nil {
				return 0, err
			}
			argTag, argVal, err := decodeArgument(r)
			if err != nil {
				return 0, err
			}
			if argTag != argInput || uint32(argVal) != recipientIdx {
				return 0, errTruncated
			}
			transferred = true

		case cmdSplitCoins:
			coinTag, _, err := decodeArgument(r)
			if err != nil {
				return 0, err
			}
			if coinTag != argGasCoin {
				return 0, errTruncated
			}
			n, err := r.uleb()
			if err != nil || n > maxSplitAmounts {
				return 0, errTruncated
			}
			for j := uint32(0); j < n; j++ {
				argTag, argVal, err := decodeArgument(r)
				if err != nil {
					return 0, err
				}
				if argTag != argInput {
					return 0, errTruncated
				}
				for _, a := range amounts {
					if a.index == uint32(argVal) {
						sum := total + a.amount
						if sum < total {
							return 0, errTruncated
						}
						total = sum
					}
				}
			}

		default:
			return 0, errTruncated
		}
	}

	if !transferred {
		return 0, errTruncated
	}
	return total, nil
}

// decodeArgument reads one command argument and returns its tag and, for
// Input/Result, the slot value.
func decodeArgument(r *reader) (uint32, uint16, error) {
	tag, err := r.uleb()
	if err != nil {
		return 0, 0, err
	}
	switch tag {
	case argGasCoin:
		return tag, 0, nil
	case argInput, argResult:
		v, err := r.u16()
		return tag, v, err
	case argNestedResult:
		if _, err := r.u16(); err != nil {
			return 0, 0, err
		}
		v, err := r.u16()
		return tag, v, err
	default:
		return 0, 0, errTruncated
	}
}

func skipArgument(r *reader) error {
	_, _, err := decodeArgument(r)
	return err
}

// decodeGasData reads the gas payment refs, owner, price and budget.
// Only the budget matters for display: it already reflects price times
// the maximum gas amount.
func decodeGasData(r *reader) (uint64, error) {
	n, err := r.uleb()
	if err != nil {
		return 0, err
	}
	for i := uint32(0); i < n; i++ {
		if err := decodeObjectRef(r); err != nil {
			return 0, err
		}
	}
	if err := r.skip(addressLen); err != nil { // owner
		return 0, err
	}
	if _, err := r.u64(); err != nil { // price
		return 0, err
	}
	return r.u64() // budget
}

func decodeExpiration(r *reader) error {
	tag, err := r.uleb()
	if err != nil {
		return err
	}
	switch tag {
	case expirationNone:
		return nil
	case expirationEpoch:
		_, err := r.u64()
		return err
	default:
		return errTruncated
	}
}
