// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package tui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hardsign-dev/hardsign/internal/protocol"
)

// Messages forwarded from the IPC read loop to the TUI.
type (
	ConnectedMsg    struct{}
	DisconnectedMsg struct{ Error error }
	DisplacedMsg    struct{}
	ClientExistsMsg struct{}
	ErrorMsg        struct{ Error error }

	StatusMsg struct {
		Version      string
		BlindSigning bool
		FlowActive   bool
	}
	StepMsg struct {
		Header   string
		Body     string
		Paginate bool
		Index    int
		Total    int
	}
	DecideMsg struct{ Title string }
	FlowResolvedMsg struct {
		Outcome string
		Error   string
	}
	BlindResultMsg struct {
		Success bool
		Enabled bool
		Error   string
	}
)

// IPCClient manages the operator connection to hsignerd
type IPCClient struct {
	conn   net.Conn
	reader *bufio.Reader
	path   string

	mu        sync.Mutex
	connected bool
	displaced bool

	msgChan chan tea.Msg
	done    chan struct{}
}

// NewIPCClient creates a new IPC client
func NewIPCClient(path string) *IPCClient {
	return &IPCClient{
		path:    path,
		msgChan: make(chan tea.Msg, 10),
		done:    make(chan struct{}),
	}
}

// Connect establishes the IPC connection
func (c *IPCClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	conn, err := net.Dial("unix", c.path)
	if err != nil {
		return fmt.Errorf("failed to connect to IPC socket: %w", err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connected = true

	go c.readMessages()
	return nil
}

// Disconnect closes the IPC connection
func (c *IPCClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.connected = false
}

// WaitForMessage returns a command that delivers the next IPC message.
func (c *IPCClient) WaitForMessage() tea.Cmd {
	return func() tea.Msg {
		return <-c.msgChan
	}
}

// SendDisplaceConfirm takes over from another connected operator.
func (c *IPCClient) SendDisplaceConfirm() error {
	return c.sendMessage(protocol.DisplaceConfirmMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeDisplaceConfirm},
	})
}

// SendStepAck advances the confirmation flow
func (c *IPCClient) SendStepAck() error {
	return c.sendMessage(protocol.StepAckMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeStepAck},
	})
}

// SendDecision resolves the confirmation flow
func (c *IPCClient) SendDecision(approved bool, reason string) error {
	return c.sendMessage(protocol.DecisionMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeDecision},
		Approved:    approved,
		Reason:      reason,
	})
}

// SendSetBlindSigning toggles the blind-signing setting
func (c *IPCClient) SendSetBlindSigning(enabled bool) error {
	return c.sendMessage(protocol.SetBlindSigningMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeSetBlindSigning},
		Enabled:     enabled,
	})
}

// sendMessage sends a line-delimited JSON message over IPC
func (c *IPCClient) sendMessage(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = c.conn.Write(data)
	return err
}

// readMessages reads device messages and forwards them to the TUI
func (c *IPCClient) readMessages() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		displaced := c.displaced
		c.mu.Unlock()

		if !displaced {
			c.msgChan <- DisconnectedMsg{}
		}
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				c.msgChan <- DisconnectedMsg{Error: err}
				return
			}
			return
		}
		if len(line) > 0 && line[len(line)-1] == '\n' {
			line = line[:len(line)-1]
		}

		var base protocol.BaseMessage
		if err := json.Unmarshal(line, &base); err != nil {
			c.msgChan <- ErrorMsg{Error: fmt.Errorf("invalid message: %w", err)}
			continue
		}

		switch base.Type {
		case protocol.MsgTypeClientExists:
			c.msgChan <- ClientExistsMsg{}

		case protocol.MsgTypeDisplaced:
			c.mu.Lock()
			c.displaced = true
			c.mu.Unlock()
			c.msgChan <- DisplacedMsg{}
			return

		case protocol.MsgTypeStatus:
			var status protocol.StatusMessage
			if err := json.Unmarshal(line, &status); err != nil {
				continue
			}
			c.msgChan <- StatusMsg{
				Version:      status.Version,
				BlindSigning: status.BlindSigning,
				FlowActive:   status.FlowActive,
			}

		case protocol.MsgTypeShowStep:
			var step protocol.ShowStepMessage
			if err := json.Unmarshal(line, &step); err != nil {
				continue
			}
			c.msgChan <- StepMsg{
				Header:   step.Header,
				Body:     step.Body,
				Paginate: step.Paginate,
				Index:    step.Index,
				Total:    step.Total,
			}

		case protocol.MsgTypeDecide:
			var msg protocol.DecideMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				continue
			}
			c.msgChan <- DecideMsg{Title: msg.Title}

		case protocol.MsgTypeFlowResolved:
			var msg protocol.FlowResolvedMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				continue
			}
			c.msgChan <- FlowResolvedMsg{Outcome: msg.Outcome, Error: msg.Error}

		case protocol.MsgTypeSetBlindResult:
			var msg protocol.SetBlindResultMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				continue
			}
			c.msgChan <- BlindResultMsg{Success: msg.Success, Enabled: msg.Enabled, Error: msg.Error}

		case protocol.MsgTypeError:
			var msg protocol.ErrorMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				continue
			}
			c.msgChan <- ErrorMsg{Error: fmt.Errorf("%s", msg.Error)}
		}
	}
}
