// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/hardsign-dev/hardsign/internal/protocol"
	"github.com/hardsign-dev/hardsign/internal/prompt"
	"github.com/hardsign-dev/hardsign/internal/settings"
	"github.com/hardsign-dev/hardsign/internal/util"
	"github.com/hardsign-dev/hardsign/internal/version"
)

// operatorReply is one routed answer from the operator's read loop.
type operatorReply struct {
	kind     string
	approved bool
	reason   string
}

// operatorHub owns the single operator connection and implements the
// device's confirmation screen over it. At most one operator is
// connected; a newcomer may displace the current one, matching how a
// physical device has one set of buttons.
type operatorHub struct {
	store *settings.Store

	mu      sync.Mutex
	conn    net.Conn
	replies chan operatorReply

	flowMu     sync.Mutex
	flowActive bool
}

func newOperatorHub(store *settings.Store) *operatorHub {
	return &operatorHub{store: store}
}

// serve accepts operator connections until the context ends.
func (h *operatorHub) serve(ctx context.Context, ln net.Listener) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go h.adopt(conn)
	}
}

// adopt installs a new operator connection, displacing the previous one
// if the newcomer confirms.
func (h *operatorHub) adopt(conn net.Conn) {
	h.mu.Lock()
	if h.conn != nil {
		h.mu.Unlock()
		if !h.negotiateDisplacement(conn) {
			conn.Close()
			return
		}
		h.mu.Lock()
		if h.conn != nil {
			writeJSON(h.conn, protocol.DisplacedMessage{
				BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeDisplaced},
				Message:     "another operator took over this device",
			})
			h.conn.Close()
		}
	}
	h.conn = conn
	h.replies = make(chan operatorReply, 1)
	replies := h.replies
	h.mu.Unlock()

	h.sendStatus()
	util.Logger.Info("operator connected")
	h.readLoop(conn, replies)
}

func (h *operatorHub) negotiateDisplacement(conn net.Conn) bool {
	if err := writeJSON(conn, protocol.ClientExistsMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeClientExists},
		Message:     "another operator is connected; confirm to take over",
	}); err != nil {
		return false
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return false
	}
	var base protocol.BaseMessage
	if err := json.Unmarshal(line, &base); err != nil {
		return false
	}
	return base.Type == protocol.MsgTypeDisplaceConfirm
}

// readLoop routes operator messages until the connection drops. Flow
// replies go to the waiting screen call; settings traffic is handled
// here directly.
func (h *operatorHub) readLoop(conn net.Conn, replies chan operatorReply) {
	defer func() {
		h.mu.Lock()
		if h.conn == conn {
			h.conn = nil
			h.replies = nil
		}
		h.mu.Unlock()
		close(replies)
		conn.Close()
		util.Logger.Info("operator disconnected")
	}()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var base protocol.BaseMessage
		if err := json.Unmarshal(line, &base); err != nil {
			continue
		}

		switch base.Type {
		case protocol.MsgTypeStepAck:
			select {
			case replies <- operatorReply{kind: protocol.MsgTypeStepAck}:
			default:
			}

		case protocol.MsgTypeDecision:
			var msg protocol.DecisionMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				continue
			}
			select {
			case replies <- operatorReply{
				kind:     protocol.MsgTypeDecision,
				approved: msg.Approved,
				reason:   msg.Reason,
			}:
			default:
			}

		case protocol.MsgTypeSetBlindSigning:
			var msg protocol.SetBlindSigningMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				continue
			}
			h.handleSetBlind(conn, msg)
		}
	}
}

func (h *operatorHub) handleSetBlind(conn net.Conn, msg protocol.SetBlindSigningMessage) {
	result := protocol.SetBlindResultMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeSetBlindResult, ID: msg.ID},
		Success:     true,
		Enabled:     msg.Enabled,
	}
	if err := h.store.SetBlindSigning(msg.Enabled); err != nil {
		result.Success = false
		result.Enabled = h.store.BlindSigningEnabled()
		result.Error = err.Error()
	} else {
		util.Logger.Info("blind signing setting changed", "enabled", msg.Enabled)
	}
	writeJSON(conn, result)
	h.sendStatus()
}

// sendStatus pushes the current device state to the operator.
func (h *operatorHub) sendStatus() {
	h.flowMu.Lock()
	active := h.flowActive
	h.flowMu.Unlock()

	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return
	}
	writeJSON(conn, protocol.StatusMessage{
		BaseMessage:  protocol.BaseMessage{Type: protocol.MsgTypeStatus},
		Version:      version.String(),
		BlindSigning: h.store.BlindSigningEnabled(),
		FlowActive:   active,
	})
}

// current returns the live connection and reply channel, or an error
// when no operator is attached. A device with nobody at the buttons
// cannot approve anything.
func (h *operatorHub) current() (net.Conn, chan operatorReply, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return nil, nil, fmt.Errorf("no operator connected")
	}
	return h.conn, h.replies, nil
}

// ShowStep implements prompt.Screen: one confirmation screen is pushed
// to the operator, and the call blocks until the operator advances or
// rejects. There is deliberately no timeout.
func (h *operatorHub) ShowStep(ctx context.Context, step prompt.Step) error {
	conn, replies, err := h.current()
	if err != nil {
		return err
	}

	h.flowMu.Lock()
	h.flowActive = true
	h.flowMu.Unlock()

	if err := writeJSON(conn, protocol.ShowStepMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeShowStep},
		Header:      step.Header,
		Body:        step.Body,
		Paginate:    step.Paginate,
		Index:       step.Index,
		Total:       step.Total,
	}); err != nil {
		h.resolveFlow(conn, "error", err.Error())
		return err
	}

	for {
		select {
		case <-ctx.Done():
			h.resolveFlow(conn, "error", ctx.Err().Error())
			return ctx.Err()
		case r, ok := <-replies:
			if !ok {
				h.resolveFlow(nil, "error", "operator disconnected")
				return fmt.Errorf("operator disconnected")
			}
			if r.kind == protocol.MsgTypeDecision && !r.approved {
				h.resolveFlow(conn, "rejected", r.reason)
				return prompt.ErrRejected
			}
			if r.kind == protocol.MsgTypeStepAck {
				return nil
			}
			// A stray approval before the decision screen is ignored.
		}
	}
}

// Decide implements prompt.Screen: the final verdict screen.
func (h *operatorHub) Decide(ctx context.Context) (bool, error) {
	conn, replies, err := h.current()
	if err != nil {
		return false, err
	}

	if err := writeJSON(conn, protocol.DecideMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeDecide},
		Title:       "Approve?",
	}); err != nil {
		h.resolveFlow(conn, "error", err.Error())
		return false, err
	}

	for {
		select {
		case <-ctx.Done():
			h.resolveFlow(conn, "error", ctx.Err().Error())
			return false, ctx.Err()
		case r, ok := <-replies:
			if !ok {
				h.resolveFlow(nil, "error", "operator disconnected")
				return false, fmt.Errorf("operator disconnected")
			}
			if r.kind != protocol.MsgTypeDecision {
				continue
			}
			if r.approved {
				h.resolveFlow(conn, "approved", "")
				return true, nil
			}
			h.resolveFlow(conn, "rejected", r.reason)
			return false, nil
		}
	}
}

// resolveFlow closes out the operator-side flow display.
func (h *operatorHub) resolveFlow(conn net.Conn, outcome, detail string) {
	h.flowMu.Lock()
	h.flowActive = false
	h.flowMu.Unlock()

	if conn == nil {
		return
	}
	writeJSON(conn, protocol.FlowResolvedMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeFlowResolved},
		Outcome:     outcome,
		Error:       detail,
	})
}

// writeJSON sends one line-delimited JSON message.
func writeJSON(conn net.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = conn.Write(data)
	return err
}
