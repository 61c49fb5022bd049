// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

// Package protocol defines the message types shared between hsignerd
// (device) and its operator clients, hsapprover and hsadmin.
// This is the single source of truth for the wire protocol.
package protocol

// Operator IPC message type constants
const (
	// Confirmation flow message types
	MsgTypeShowStep     = "show_step"     // Device → operator: display one confirmation screen
	MsgTypeStepAck      = "step_ack"      // Operator → device: advance past the current step
	MsgTypeDecide       = "decide"        // Device → operator: final approve/reject screen
	MsgTypeDecision     = "decision"      // Operator → device: the verdict
	MsgTypeFlowResolved = "flow_resolved" // Device → operator: flow ended (approved, rejected or errored)

	// Device state message types
	MsgTypeStatus          = "status"
	MsgTypeSetBlindSigning = "set_blind_signing"
	MsgTypeSetBlindResult  = "set_blind_result"
	MsgTypeError           = "error"

	// Client displacement message types (one operator at a time)
	MsgTypeClientExists    = "client_exists"    // Device → new client: another operator is connected
	MsgTypeDisplaceConfirm = "displace_confirm" // New client → device: proceed with displacement
	MsgTypeDisplaced       = "displaced"        // Device → old client: you've been displaced
)

// BaseMessage is the base structure for all operator IPC messages
type BaseMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"` // Unique request ID for correlation
}

// ShowStepMessage carries one confirmation screen to the operator.
// The operator replies with a StepAckMessage to advance, or a
// DecisionMessage with Approved=false to reject early.
type ShowStepMessage struct {
	BaseMessage
	Header   string `json:"header"`
	Body     string `json:"body"`
	Paginate bool   `json:"paginate,omitempty"`
	Index    int    `json:"index"` // zero-based position in the flow
	Total    int    `json:"total"` // number of steps in the flow
}

// StepAckMessage advances the confirmation flow past the current step
type StepAckMessage struct {
	BaseMessage
}

// DecideMessage asks the operator for the final verdict
type DecideMessage struct {
	BaseMessage
	Title string `json:"title"` // e.g. "Approve transaction?"
}

// DecisionMessage is the operator's verdict. During a step it means
// early rejection; after a DecideMessage it resolves the flow.
type DecisionMessage struct {
	BaseMessage
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// FlowResolvedMessage tells the operator the flow is over, so the UI
// can return to its idle screen.
type FlowResolvedMessage struct {
	BaseMessage
	Outcome string `json:"outcome"` // "approved", "rejected" or "error"
	Error   string `json:"error,omitempty"`
}

// StatusMessage reports device state to a newly connected operator and
// after every settings change.
type StatusMessage struct {
	BaseMessage
	Version      string `json:"version"`
	BlindSigning bool   `json:"blind_signing"`
	FlowActive   bool   `json:"flow_active"`
}

// SetBlindSigningMessage toggles the blind-signing setting
type SetBlindSigningMessage struct {
	BaseMessage
	Enabled bool `json:"enabled"`
}

// SetBlindResultMessage is sent back after a toggle attempt
type SetBlindResultMessage struct {
	BaseMessage
	Success bool   `json:"success"`
	Enabled bool   `json:"enabled"`
	Error   string `json:"error,omitempty"`
}

// ErrorMessage reports a device-side failure to the operator
type ErrorMessage struct {
	BaseMessage
	Error string `json:"error"`
}

// ClientExistsMessage is sent to a new operator when another is connected
type ClientExistsMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// DisplaceConfirmMessage is sent by the new operator to take over the session
type DisplaceConfirmMessage struct {
	BaseMessage
}

// DisplacedMessage is sent to the old operator before its connection closes
type DisplacedMessage struct {
	BaseMessage
	Message string `json:"message"`
}
