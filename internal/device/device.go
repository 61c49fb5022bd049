// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

// Package device implements the signing device core: a sequential
// command dispatcher over reassembled APDUs. One command is in flight
// at a time; a command that fails leaves no residue, so the next
// command starts from a clean slate.
package device

import (
	"context"
	"encoding/binary"

	"github.com/hardsign-dev/hardsign/internal/apdu"
	"github.com/hardsign-dev/hardsign/internal/crypto"
	"github.com/hardsign-dev/hardsign/internal/hdpath"
	"github.com/hardsign-dev/hardsign/internal/policy"
	"github.com/hardsign-dev/hardsign/internal/prompt"
	"github.com/hardsign-dev/hardsign/internal/seed"
	"github.com/hardsign-dev/hardsign/internal/settings"
	"github.com/hardsign-dev/hardsign/internal/txdec"
	"github.com/hardsign-dev/hardsign/internal/util"
)

// Application version reported by InsGetVersion, independent of the
// daemon's build version.
const (
	AppVersionMajor byte = 0
	AppVersionMinor byte = 3
	AppVersionPatch byte = 0
)

// pathWireLen is the encoded size of a derivation path in command data.
const pathWireLen = 1 + 4*hdpath.PathLen

// signHeaderLen is the path plus the 4-byte declared transaction length
// at the front of a first Sign block.
const signHeaderLen = pathWireLen + 4

// Device is the command dispatcher. It owns the sealed seed handle, the
// operator screen and the single transaction buffer.
type Device struct {
	seed   *crypto.SecureBytes
	store  *settings.Store
	screen prompt.Screen
	flow   *prompt.Flow

	// multi-block sign state, valid only between a first block and the
	// block that completes the declared length
	payload      apdu.Buffer
	signPath     hdpath.Path
	signDeclared int
	signPending  bool
}

func New(deviceSeed *crypto.SecureBytes, store *settings.Store, screen prompt.Screen) *Device {
	return &Device{
		seed:   deviceSeed,
		store:  store,
		screen: screen,
		flow:   prompt.NewFlow(),
	}
}

// Flow exposes the confirmation flow for state inspection.
func (d *Device) Flow() *prompt.Flow { return d.flow }

// Handle dispatches one reassembled command and returns the response
// data. The caller turns the error into a status word; data is only
// meaningful when the error is nil.
func (d *Device) Handle(ctx context.Context, cmd apdu.Command) ([]byte, error) {
	// Any command other than a sign continuation abandons an unfinished
	// multi-block sign.
	if cmd.INS != apdu.InsSign || cmd.P1 != apdu.P1MoreBlocks {
		d.abortSign()
	}

	switch cmd.INS {
	case apdu.InsGetVersion:
		return []byte{AppVersionMajor, AppVersionMinor, AppVersionPatch}, nil
	case apdu.InsVerifyAddress:
		return d.handleVerifyAddress(ctx, cmd)
	case apdu.InsGetPublicKey:
		return d.handleGetPublicKey(ctx, cmd)
	case apdu.InsSign:
		return d.handleSign(ctx, cmd)
	default:
		return nil, apdu.ErrUnknownCommand
	}
}

// derive runs key derivation under the seed lock. The caller owns the
// returned key pair and must Destroy it.
func (d *Device) derive(path hdpath.Path) (*seed.KeyPair, error) {
	var kp *seed.KeyPair
	err := d.seed.WithBytes(func(b []byte) error {
		kp = seed.Derive(b, path)
		return nil
	})
	if err != nil {
		return nil, apdu.ErrMalformedPayload
	}
	return kp, nil
}

// keyAddressResponse encodes the public key and its address, each
// length-prefixed, the shape both key export commands answer with.
func keyAddressResponse(kp *seed.KeyPair) []byte {
	pub := kp.PublicKey()
	addr := kp.Address()
	out := make([]byte, 0, 2+len(pub)+len(addr))
	out = append(out, byte(len(pub)))
	out = append(out, pub...)
	out = append(out, byte(len(addr)))
	out = append(out, addr[:]...)
	return out
}

func (d *Device) handleGetPublicKey(ctx context.Context, cmd apdu.Command) ([]byte, error) {
	path, err := hdpath.Parse(cmd.Data)
	if err != nil {
		return nil, err
	}

	kp, err := d.derive(path)
	if err != nil {
		return nil, err
	}
	resp := keyAddressResponse(kp)
	addr := kp.Address()
	kp.Destroy()

	if cmd.P1 == apdu.P1Confirm {
		if err := d.confirm(ctx, []prompt.Step{
			{Header: "Confirm address", Body: addr.String(), Paginate: true},
		}); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (d *Device) handleVerifyAddress(ctx context.Context, cmd apdu.Command) ([]byte, error) {
	path, err := hdpath.Parse(cmd.Data)
	if err != nil {
		return nil, err
	}

	kp, err := d.derive(path)
	if err != nil {
		return nil, err
	}
	resp := keyAddressResponse(kp)
	addr := kp.Address()
	kp.Destroy()

	if err := d.confirm(ctx, []prompt.Step{
		{Header: "Verify " + path.Network().Label() + " address", Body: addr.String(), Paginate: true},
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

func (d *Device) handleSign(ctx context.Context, cmd apdu.Command) ([]byte, error) {
	switch cmd.P1 {
	case apdu.P1FirstBlock:
		return d.signFirst(ctx, cmd.Data)
	case apdu.P1MoreBlocks:
		return d.signMore(ctx, cmd.Data)
	default:
		return nil, apdu.ErrMalformedPayload
	}
}

// signFirst parses the path and declared transaction length, then
// buffers the first chunk. A transaction that fits in one block is
// signed immediately; otherwise the device answers OK with no data and
// waits for continuation blocks.
func (d *Device) signFirst(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) < signHeaderLen {
		return nil, apdu.ErrMalformedPayload
	}
	path, err := hdpath.Parse(data[:pathWireLen])
	if err != nil {
		return nil, err
	}
	declared := int(binary.BigEndian.Uint32(data[pathWireLen:signHeaderLen]))
	if declared == 0 {
		return nil, apdu.ErrMalformedPayload
	}
	if declared > apdu.MaxPayloadLen {
		return nil, apdu.ErrOverflow
	}

	d.payload.Reset()
	if err := d.payload.Append(data[signHeaderLen:]); err != nil {
		return nil, err
	}
	if d.payload.Len() > declared {
		return nil, apdu.ErrMalformedPayload
	}

	d.signPath = path
	d.signDeclared = declared
	if d.payload.Len() < declared {
		d.signPending = true
		return nil, nil
	}
	return d.finishSign(ctx)
}

func (d *Device) signMore(ctx context.Context, data []byte) ([]byte, error) {
	if !d.signPending {
		return nil, apdu.ErrMalformedPayload
	}
	if err := d.payload.Append(data); err != nil {
		d.abortSign()
		return nil, err
	}
	if d.payload.Len() > d.signDeclared {
		d.abortSign()
		return nil, apdu.ErrMalformedPayload
	}
	if d.payload.Len() < d.signDeclared {
		return nil, nil
	}
	return d.finishSign(ctx)
}

// finishSign runs the full pipeline on the complete payload: decode,
// policy, confirmation, then signature. The signature covers the
// payload digest, the same value a blind-signing operator confirmed on
// screen.
func (d *Device) finishSign(ctx context.Context) ([]byte, error) {
	defer d.abortSign()

	raw := d.payload.Bytes()
	parsed := txdec.Decode(raw)

	// The toggle is read fresh from disk for every decision.
	blind := d.store.BlindSigningEnabled()
	steps, err := policy.Review(parsed, d.signPath.Network(), blind)
	if err != nil {
		return nil, err
	}
	if err := d.confirm(ctx, steps); err != nil {
		return nil, err
	}

	kp, err := d.derive(d.signPath)
	if err != nil {
		return nil, err
	}
	defer kp.Destroy()

	util.Debug("signing payload", "kind", parsed.Kind, "path", d.signPath.String())
	return kp.Sign(parsed.Digest[:]), nil
}

// confirm runs one confirmation flow and folds every non-approval
// outcome into a user rejection.
func (d *Device) confirm(ctx context.Context, steps []prompt.Step) error {
	defer d.flow.Reset()
	approved, err := d.flow.Run(ctx, d.screen, steps)
	if err != nil || !approved {
		return apdu.ErrUserRejected
	}
	return nil
}

// abortSign drops buffered transaction state. The buffer is zeroed so a
// later overflow or parse error cannot expose a previous payload.
func (d *Device) abortSign() {
	d.payload.Reset()
	d.signDeclared = 0
	d.signPending = false
	d.signPath = hdpath.Path{}
}
