// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles all TUI events
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ConnectedMsg:
		m.connectionState = ConnectionConnected
		return m, m.client.WaitForMessage()

	case ClientExistsMsg:
		m.viewState = ViewDisplaceConfirm
		return m, m.client.WaitForMessage()

	case DisplacedMsg:
		m.viewState = ViewError
		m.errMsg = "Displaced by another operator"
		return m, tea.Quit

	case DisconnectedMsg:
		m.connectionState = ConnectionDisconnected
		m.viewState = ViewError
		if msg.Error != nil {
			m.errMsg = msg.Error.Error()
		} else {
			m.errMsg = "Connection closed by device"
		}
		return m, tea.Quit

	case StatusMsg:
		m.deviceVersion = msg.Version
		m.blindSigning = msg.BlindSigning
		m.flowActive = msg.FlowActive
		if m.viewState == ViewConnecting || m.viewState == ViewDisplaceConfirm {
			m.viewState = ViewIdle
		}
		return m, m.client.WaitForMessage()

	case StepMsg:
		m.step = &StepDisplay{
			Header:   msg.Header,
			Body:     msg.Body,
			Paginate: msg.Paginate,
			Index:    msg.Index,
			Total:    msg.Total,
		}
		if msg.Index == 0 {
			m.flowSteps = nil
		}
		m.flowSteps = append(m.flowSteps, msg.Header+": "+msg.Body)
		m.viewState = ViewStep
		m.lastOutcome = ""
		return m, m.client.WaitForMessage()

	case DecideMsg:
		m.decideTitle = msg.Title
		m.decideFocus = 0
		m.initDecideViewport()
		m.viewState = ViewDecide
		return m, m.client.WaitForMessage()

	case FlowResolvedMsg:
		m.step = nil
		m.flowSteps = nil
		m.lastOutcome = msg.Outcome
		m.lastError = msg.Error
		m.viewState = ViewIdle
		return m, m.client.WaitForMessage()

	case BlindResultMsg:
		if msg.Success {
			m.blindSigning = msg.Enabled
		} else {
			m.lastError = msg.Error
		}
		return m, m.client.WaitForMessage()

	case ErrorMsg:
		m.lastError = msg.Error.Error()
		if m.viewState == ViewConnecting {
			m.errMsg = msg.Error.Error()
			m.viewState = ViewError
			return m, tea.Quit
		}
		return m, m.client.WaitForMessage()
	}

	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global quit, but never silently while a flow is on screen.
	if key == "ctrl+c" {
		m.client.Disconnect()
		return m, tea.Quit
	}

	switch m.viewState {
	case ViewDisplaceConfirm:
		switch key {
		case "y", "enter":
			if err := m.client.SendDisplaceConfirm(); err != nil {
				m.errMsg = err.Error()
				m.viewState = ViewError
				return m, tea.Quit
			}
			m.viewState = ViewConnecting
		case "n", "q", "esc":
			m.client.Disconnect()
			return m, tea.Quit
		}

	case ViewIdle:
		switch key {
		case "q":
			m.client.Disconnect()
			return m, tea.Quit
		case "b":
			_ = m.client.SendSetBlindSigning(!m.blindSigning)
		}

	case ViewStep:
		if m.step == nil {
			break
		}
		switch key {
		case "left", "h":
			if m.step.page > 0 {
				m.step.page--
			}
		case "right", "l":
			if m.step.page < m.step.pages()-1 {
				m.step.page++
			}
		case "enter", " ":
			_ = m.client.SendStepAck()
		case "n", "r", "esc":
			_ = m.client.SendDecision(false, "rejected by operator")
		}

	case ViewDecide:
		switch key {
		case "tab", "left", "right", "h", "l":
			m.decideFocus = 1 - m.decideFocus
		case "y", "a":
			_ = m.client.SendDecision(true, "")
		case "n", "r", "esc":
			_ = m.client.SendDecision(false, "rejected by operator")
		case "enter":
			if m.decideFocus == 0 {
				_ = m.client.SendDecision(true, "")
			} else {
				_ = m.client.SendDecision(false, "rejected by operator")
			}
		default:
			// up/down/pgup/pgdn scroll the flow summary
			m.decideViewport, _ = m.decideViewport.Update(msg)
		}

	case ViewError:
		return m, tea.Quit
	}

	return m, nil
}
