// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

func flowSummary(steps []string) string {
	if len(steps) == 0 {
		return "(no screens shown)"
	}
	return strings.Join(steps, "\n")
}

// ViewState represents the current UI state
type ViewState int

const (
	ViewConnecting ViewState = iota
	ViewDisplaceConfirm // Confirmation modal for displacing existing operator
	ViewIdle            // Device status, waiting for prompts
	ViewStep            // One confirmation screen of a flow
	ViewDecide          // Final approve/reject screen
	ViewError
)

// ConnectionState represents IPC connection status
type ConnectionState int

const (
	ConnectionDisconnected ConnectionState = iota
	ConnectionConnecting
	ConnectionConnected
)

// StepDisplay is the confirmation screen currently shown.
type StepDisplay struct {
	Header   string
	Body     string
	Paginate bool
	Index    int
	Total    int

	// pagination cursor over Body when Paginate is set
	page int
}

// pageSize is how many characters of a paginated value fit one screen.
const pageSize = 16

func (s *StepDisplay) pages() int {
	if !s.Paginate || len(s.Body) == 0 {
		return 1
	}
	return (len(s.Body) + pageSize - 1) / pageSize
}

func (s *StepDisplay) pageBody() string {
	if !s.Paginate {
		return s.Body
	}
	start := s.page * pageSize
	end := start + pageSize
	if end > len(s.Body) {
		end = len(s.Body)
	}
	if start >= len(s.Body) {
		return ""
	}
	return s.Body[start:end]
}

// Model is the main TUI application model
type Model struct {
	viewState       ViewState
	connectionState ConnectionState
	socketPath      string

	client *IPCClient

	// Device state from the last status message
	deviceVersion string
	blindSigning  bool
	flowActive    bool

	// Current flow screen
	step        *StepDisplay
	flowSteps   []string // acked screens of the active flow, for the decide summary
	decideTitle string
	decideFocus int // 0 approve, 1 reject

	// Scrollable summary of the flow on the decide screen
	decideViewport viewport.Model

	width  int
	height int

	lastOutcome string
	lastError   string
	errMsg      string
}

// initDecideViewport sizes the summary viewport to the terminal and
// fills it with the steps seen so far.
func (m *Model) initDecideViewport() {
	vpHeight := 8
	if m.height-10 < vpHeight {
		vpHeight = m.height - 10
	}
	if vpHeight < 3 {
		vpHeight = 3
	}
	vpWidth := 60
	if m.width-8 < vpWidth {
		vpWidth = m.width - 8
	}
	if vpWidth < 30 {
		vpWidth = 30
	}
	m.decideViewport = viewport.New(vpWidth, vpHeight)
	m.decideViewport.SetContent(flowSummary(m.flowSteps))
}

// NewModel creates the initial model
func NewModel(socketPath string) Model {
	return Model{
		viewState:       ViewConnecting,
		connectionState: ConnectionConnecting,
		socketPath:      socketPath,
		client:          NewIPCClient(socketPath),
	}
}

// Init starts the IPC connection
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.connectCmd(), m.client.WaitForMessage())
}

func (m Model) connectCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.client.Connect(); err != nil {
			return ErrorMsg{Error: err}
		}
		return ConnectedMsg{}
	}
}
