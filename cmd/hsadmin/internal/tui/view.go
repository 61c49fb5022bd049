// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusOnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	statusOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2)

	buttonActiveStyle = buttonStyle.
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("62")).
				Bold(true)

	buttonInactiveStyle = buttonStyle.
				Foreground(lipgloss.Color("241"))

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(1, 2)

	valueStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			Bold(true)
)

// View renders the current UI state
func (m Model) View() string {
	switch m.viewState {
	case ViewConnecting:
		return "\n" + subtitleStyle.Render("Connecting to device...")
	case ViewDisplaceConfirm:
		return m.renderDisplaceConfirm()
	case ViewIdle:
		return m.renderIdle()
	case ViewStep:
		return m.renderStep()
	case ViewDecide:
		return m.renderDecide()
	case ViewError:
		return "\n" + errorStyle.Render("Error: "+m.errMsg)
	default:
		return ""
	}
}

func (m Model) renderDisplaceConfirm() string {
	var sb strings.Builder
	sb.WriteString(warningStyle.Render("Another operator is connected"))
	sb.WriteString("\n\nTake over this device session?\n\n")
	sb.WriteString(helpStyle.Render("y/Enter: Take over | n/q: Quit"))
	return "\n" + popupStyle.Render(sb.String())
}

func (m Model) renderIdle() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("HardSign Device"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Version: %s\n", m.deviceVersion))

	blind := statusOffStyle.Render("OFF")
	if m.blindSigning {
		blind = warningStyle.Render("ON")
	}
	sb.WriteString("Blind signing: " + blind + "\n")

	if m.lastOutcome != "" {
		switch m.lastOutcome {
		case "approved":
			sb.WriteString("\n" + statusOnStyle.Render("✓ Last request approved") + "\n")
		case "rejected":
			sb.WriteString("\n" + errorStyle.Render("✗ Last request rejected") + "\n")
		default:
			sb.WriteString("\n" + errorStyle.Render("Last flow ended: "+m.lastError) + "\n")
		}
	}
	if m.lastError != "" && m.lastOutcome == "" {
		sb.WriteString("\n" + errorStyle.Render(m.lastError) + "\n")
	}

	sb.WriteString("\n" + subtitleStyle.Render("Waiting for device prompts..."))
	sb.WriteString("\n" + helpStyle.Render("b: Toggle blind signing | q: Quit"))
	return "\n" + sb.String()
}

func (m Model) renderStep() string {
	if m.step == nil {
		return m.renderIdle()
	}

	var sb strings.Builder
	title := m.step.Header
	if m.step.Total > 1 {
		title = fmt.Sprintf("%s (step %d of %d)", m.step.Header, m.step.Index+1, m.step.Total)
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(valueStyle.Render(m.step.pageBody()))
	sb.WriteString("\n")

	if m.step.Paginate && m.step.pages() > 1 {
		sb.WriteString(subtitleStyle.Render(
			fmt.Sprintf("page %d/%d  ←/→ to flip", m.step.page+1, m.step.pages())))
		sb.WriteString("\n")
	}

	sb.WriteString(helpStyle.Render("Enter: Continue | n: Reject"))
	return "\n" + popupStyle.Render(sb.String())
}

func (m Model) renderDecide() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.decideTitle))
	sb.WriteString("\n")
	sb.WriteString(subtitleStyle.Render("Reviewed screens:"))
	sb.WriteString("\n")
	sb.WriteString(m.decideViewport.View())
	sb.WriteString("\n\n")

	var approveBtn, rejectBtn string
	if m.decideFocus == 0 {
		approveBtn = buttonActiveStyle.Render("> APPROVE")
		rejectBtn = buttonInactiveStyle.Render("  REJECT")
	} else {
		approveBtn = buttonInactiveStyle.Render("  APPROVE")
		rejectBtn = buttonActiveStyle.Render("> REJECT")
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, approveBtn, "  ", rejectBtn))
	sb.WriteString("\n")

	sb.WriteString(helpStyle.Render("y/a: Approve | n/r: Reject | Tab: Switch | Enter: Confirm | ↑/↓: Scroll"))
	return "\n" + popupStyle.Render(sb.String())
}
