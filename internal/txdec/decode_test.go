// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package txdec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"golang.org/x/crypto/blake2b"
)

// transferBuilder assembles the recognized BCS wire shape for tests.
type transferBuilder struct {
	recipient [32]byte
	amounts   []uint64
	budget    uint64

	// knobs for malformed variants
	extraRecipient  bool
	omitTransfer    bool
	splitFromInput  bool
	trailingGarbage bool
}

func appendUleb(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b = append(b, c|0x80)
		} else {
			return append(b, c)
		}
	}
}

func appendU64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}

func (tb *transferBuilder) build() []byte {
	var b []byte
	b = append(b, 0, 0, 0)    // intent
	b = appendUleb(b, 0)      // TransactionData::V1
	b = appendUleb(b, 0)      // TransactionKind::ProgrammableTransaction

	// Inputs: amounts first, recipient last.
	inputs := len(tb.amounts) + 1
	if tb.extraRecipient {
		inputs++
	}
	b = appendUleb(b, uint32(inputs))
	for _, amt := range tb.amounts {
		b = appendUleb(b, 0) // CallArg::Pure
		b = appendUleb(b, 8)
		b = appendU64(b, amt)
	}
	recipientIdx := uint32(len(tb.amounts))
	b = appendUleb(b, 0) // CallArg::Pure
	b = appendUleb(b, 32)
	b = append(b, tb.recipient[:]...)
	if tb.extraRecipient {
		b = appendUleb(b, 0)
		b = appendUleb(b, 32)
		b = append(b, tb.recipient[:]...)
	}

	// Commands: SplitCoins(GasCoin, amounts), TransferObjects([r0], recipient).
	ncmds := uint32(2)
	if tb.omitTransfer {
		ncmds = 1
	}
	b = appendUleb(b, ncmds)

	b = appendUleb(b, 2) // Command::SplitCoins
	if tb.splitFromInput {
		b = appendUleb(b, 1) // Argument::Input
		b = binary.LittleEndian.AppendUint16(b, 0)
	} else {
		b = appendUleb(b, 0) // Argument::GasCoin
	}
	b = appendUleb(b, uint32(len(tb.amounts)))
	for i := range tb.amounts {
		b = appendUleb(b, 1) // Argument::Input
		b = binary.LittleEndian.AppendUint16(b, uint16(i))
	}

	if !tb.omitTransfer {
		b = appendUleb(b, 1) // Command::TransferObjects
		b = appendUleb(b, 1) // one object
		b = appendUleb(b, 2) // Argument::Result
		b = binary.LittleEndian.AppendUint16(b, 0)
		b = appendUleb(b, 1) // Argument::Input -> recipient
		b = binary.LittleEndian.AppendUint16(b, uint16(recipientIdx))
	}

	// Sender, gas data, expiration.
	b = append(b, make([]byte, 32)...) // sender
	b = appendUleb(b, 1)               // one gas payment ref
	b = append(b, make([]byte, 32)...) // object id
	b = appendU64(b, 7)                // sequence
	b = appendUleb(b, 32)              // digest length
	b = append(b, make([]byte, 32)...)
	b = append(b, make([]byte, 32)...) // owner
	b = appendU64(b, 1000)             // price
	b = appendU64(b, tb.budget)        // budget
	b = appendUleb(b, 0)               // TransactionExpiration::None

	if tb.trailingGarbage {
		b = append(b, 0xFF)
	}
	return b
}

func sampleRecipient() [32]byte {
	var r [32]byte
	for i := range r {
		r[i] = byte(0x40 + i)
	}
	return r
}

func TestDecodeRecognizedTransfer(t *testing.T) {
	tb := &transferBuilder{
		recipient: sampleRecipient(),
		amounts:   []uint64{1000000},
		budget:    1036,
	}
	p := Decode(tb.build())

	if p.Kind != KindTransfer {
		t.Fatalf("Kind = %v, want KindTransfer", p.Kind)
	}
	if p.Recipient != sampleRecipient() {
		t.Fatal("wrong recipient")
	}
	if p.Amount != 1000000 {
		t.Fatalf("Amount = %d, want 1000000", p.Amount)
	}
	if p.MaxGas != 1036 {
		t.Fatalf("MaxGas = %d, want 1036", p.MaxGas)
	}
}

func TestDecodeSumsSplitAmounts(t *testing.T) {
	tb := &transferBuilder{
		recipient: sampleRecipient(),
		amounts:   []uint64{100, 250, 1},
		budget:    5,
	}
	p := Decode(tb.build())
	if p.Kind != KindTransfer {
		t.Fatalf("Kind = %v, want KindTransfer", p.Kind)
	}
	if p.Amount != 351 {
		t.Fatalf("Amount = %d, want 351", p.Amount)
	}
}

func TestDecodeAmountOverflowIsUnknown(t *testing.T) {
	tb := &transferBuilder{
		recipient: sampleRecipient(),
		amounts:   []uint64{^uint64(0), 1},
		budget:    5,
	}
	if p := Decode(tb.build()); p.Kind != KindUnknown {
		t.Fatal("overflowing amounts must not be recognized")
	}
}

func TestDecodeMalformedVariantsAreUnknown(t *testing.T) {
	base := transferBuilder{
		recipient: sampleRecipient(),
		amounts:   []uint64{42},
		budget:    9,
	}

	tests := []struct {
		name  string
		build func() []byte
	}{
		{"two recipients", func() []byte { tb := base; tb.extraRecipient = true; return tb.build() }},
		{"no transfer command", func() []byte { tb := base; tb.omitTransfer = true; return tb.build() }},
		{"split from non-gas coin", func() []byte { tb := base; tb.splitFromInput = true; return tb.build() }},
		{"trailing bytes", func() []byte { tb := base; tb.trailingGarbage = true; return tb.build() }},
		{"empty", func() []byte { return nil }},
		{"random", func() []byte { return []byte{9, 9, 9, 9, 9, 9, 9, 9} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.build()
			p := Decode(raw)
			if p.Kind != KindUnknown {
				t.Fatal("malformed payload was recognized")
			}
			if p.Digest != Digest(raw) {
				t.Fatal("unknown classification carries wrong digest")
			}
		})
	}
}

// Every strict prefix of a valid payload must classify as unknown: the
// decoder may never read past the end or return a partial result.
func TestDecodeAllPrefixesAreUnknown(t *testing.T) {
	tb := &transferBuilder{
		recipient: sampleRecipient(),
		amounts:   []uint64{1000000},
		budget:    1036,
	}
	raw := tb.build()
	for n := 0; n < len(raw); n++ {
		if p := Decode(raw[:n]); p.Kind != KindUnknown {
			t.Fatalf("prefix of length %d was recognized", n)
		}
	}
}

func TestDigestMatchesBlake2b(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x01},
		bytes.Repeat([]byte{0xAB}, 2048),
	}
	for _, in := range inputs {
		want := blake2b.Sum256(in)
		if got := Digest(in); got != want {
			t.Fatalf("digest mismatch for %d-byte input", len(in))
		}
		if p := Decode(in); p.Kind == KindUnknown && p.Digest != want {
			t.Fatalf("Decode digest mismatch for %d-byte input", len(in))
		}
	}
}

func TestUlebRejectsNonCanonical(t *testing.T) {
	// 0x80 0x00 is a non-canonical encoding of zero.
	r := &reader{data: []byte{0x80, 0x00}}
	if _, err := r.uleb(); err == nil {
		t.Fatal("non-canonical ULEB128 accepted")
	}

	// Five bytes with high bits set overflow the u32 range.
	r = &reader{data: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}}
	if _, err := r.uleb(); err == nil {
		t.Fatal("oversized ULEB128 accepted")
	}
}
