// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/hardsign-dev/hardsign/internal/protocol"
)

// IPCClient is a Unix socket client for operator connections to hsignerd.
type IPCClient struct {
	conn       net.Conn
	socketPath string
	reader     *bufio.Reader
}

// NewIPC creates a new IPC client (not yet connected).
func NewIPC(socketPath string) *IPCClient {
	return &IPCClient{
		socketPath: socketPath,
	}
}

// Dial connects to the device's operator Unix socket.
func (c *IPCClient) Dial() error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to IPC socket: %w", err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Close closes the IPC connection.
func (c *IPCClient) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// SetReadDeadline sets a deadline for read operations.
func (c *IPCClient) SetReadDeadline(d time.Duration) {
	if c.conn != nil {
		_ = c.conn.SetReadDeadline(time.Now().Add(d))
	}
}

// ClearReadDeadline removes any read deadline. Confirmation flows have
// no timeout, so operators sit in deadline-free reads while idle.
func (c *IPCClient) ClearReadDeadline() {
	if c.conn != nil {
		_ = c.conn.SetReadDeadline(time.Time{})
	}
}

// WriteJSON sends a JSON message over the socket.
// Each message is a single line terminated by newline.
func (c *IPCClient) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = c.conn.Write(data)
	return err
}

// ReadMessage reads a line-delimited JSON message from the socket.
func (c *IPCClient) ReadMessage() ([]byte, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	// Trim the newline
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	return line, nil
}

// SendAndReceive sends a JSON message and waits for a response.
func (c *IPCClient) SendAndReceive(msg interface{}, timeout time.Duration) ([]byte, error) {
	if err := c.WriteJSON(msg); err != nil {
		return nil, err
	}
	c.SetReadDeadline(timeout)
	return c.ReadMessage()
}

// WaitForStatus waits for the initial status message from the device.
func (c *IPCClient) WaitForStatus(timeout time.Duration) (*protocol.StatusMessage, error) {
	c.SetReadDeadline(timeout)
	message, err := c.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to receive status: %w", err)
	}

	var status protocol.StatusMessage
	if err := json.Unmarshal(message, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	if status.Type == protocol.MsgTypeClientExists {
		return nil, ErrAlreadyConnected
	}
	if status.Type != protocol.MsgTypeStatus {
		return nil, fmt.Errorf("expected status message, got: %s", status.Type)
	}

	return &status, nil
}

// AckStep advances the confirmation flow past the current step.
func (c *IPCClient) AckStep() error {
	return c.WriteJSON(protocol.StepAckMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeStepAck},
	})
}

// SendDecision resolves the flow with the operator's verdict.
func (c *IPCClient) SendDecision(approved bool, reason string) error {
	return c.WriteJSON(protocol.DecisionMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeDecision},
		Approved:    approved,
		Reason:      reason,
	})
}

// SetBlindSigning toggles the device's blind-signing setting and waits
// for the result.
func (c *IPCClient) SetBlindSigning(enabled bool, timeout time.Duration) (*protocol.SetBlindResultMessage, error) {
	msg := protocol.SetBlindSigningMessage{
		BaseMessage: protocol.BaseMessage{
			Type: protocol.MsgTypeSetBlindSigning,
			ID:   fmt.Sprintf("blind-%d", time.Now().UnixNano()),
		},
		Enabled: enabled,
	}

	response, err := c.SendAndReceive(msg, timeout)
	if err != nil {
		return nil, err
	}

	var result protocol.SetBlindResultMessage
	if err := json.Unmarshal(response, &result); err != nil {
		return nil, fmt.Errorf("failed to parse toggle result: %w", err)
	}

	return &result, nil
}
