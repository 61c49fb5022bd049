// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hardsign-dev/hardsign/cmd/hsadmin/internal/tui"
	"github.com/hardsign-dev/hardsign/internal/util"
	"github.com/hardsign-dev/hardsign/internal/version"
)

func main() {
	// Handle early-exit flags before any other processing
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Printf("hsadmin %s\n", version.String())
			os.Exit(0)
		}
	}

	dataDir := flag.String("d", "", "Data directory (required, or set HARDSIGN_DATA)")
	flag.Parse()

	resolvedDataDir := util.RequireDeviceDataDir(*dataDir)
	config := util.LoadDeviceConfig(resolvedDataDir)
	socketPath := util.ResolvePath(config.OperatorSocket, resolvedDataDir)

	util.InitLogger()

	p := tea.NewProgram(tui.NewModel(socketPath), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
