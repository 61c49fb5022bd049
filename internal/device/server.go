// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package device

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/hardsign-dev/hardsign/internal/apdu"
	"github.com/hardsign-dev/hardsign/internal/util"
)

// Serve runs the packet loop for one host connection. Packets are
// reassembled into commands, dispatched strictly one at a time, and
// every command gets exactly one response. The loop ends when the host
// disconnects or the context is cancelled.
func (d *Device) Serve(ctx context.Context, conn net.Conn) error {
	defer d.abortSign()

	var pkt [apdu.PacketSize]byte
	var ra apdu.Reassembler

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := apdu.ReadPacket(conn, pkt[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		msg, err := ra.Feed(pkt[:])
		if err != nil {
			// Framing errors are answered, then the stream resumes at
			// the next first packet.
			if werr := apdu.WriteResponse(conn, nil, apdu.StatusWord(err)); werr != nil {
				return werr
			}
			continue
		}
		if msg == nil {
			continue // more packets to come
		}

		cmd, err := apdu.ParseCommand(msg)
		if err != nil {
			if werr := apdu.WriteResponse(conn, nil, apdu.StatusWord(err)); werr != nil {
				return werr
			}
			continue
		}

		data, err := d.Handle(ctx, cmd)
		if err != nil {
			util.Debug("command failed", "ins", cmd.INS, "err", err)
			data = nil
		}
		if werr := apdu.WriteResponse(conn, data, apdu.StatusWord(err)); werr != nil {
			return werr
		}
	}
}
