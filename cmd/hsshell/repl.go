// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// shellState holds the REPL session state.
type shellState struct {
	socketPath string
	device     *deviceConn
}

func (s *shellState) connectionIndicator() string {
	if s.device != nil {
		return "●"
	}
	return "○"
}

// ensureConnected dials the device socket on first use and
// reconnects after a dropped connection.
func (s *shellState) ensureConnected() error {
	if s.device != nil {
		return nil
	}
	dev, err := dialDevice(s.socketPath)
	if err != nil {
		return err
	}
	s.device = dev
	return nil
}

func (s *shellState) disconnect() {
	if s.device != nil {
		s.device.Close()
		s.device = nil
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("version"),
		readline.PcItem("pubkey"),
		readline.PcItem("address"),
		readline.PcItem("verify"),
		readline.PcItem("sign"),
		readline.PcItem("apdu"),
		readline.PcItem("connect"),
		readline.PcItem("quit"),
		readline.PcItem("exit"),
	)
}

func startBasicREPL(state *shellState) {
	fmt.Println("Running in basic mode (no history/completion)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%shsshell> ", state.connectionIndicator())
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if err := state.executeCommand(fields[0], fields[1:]); err != nil {
			if errors.Is(err, errExit) {
				break
			}
			fmt.Printf("Error: %v\n", err)
		}
	}
	state.disconnect()
}

func startREPL(socketPath string) {
	fmt.Println("hsshell - HardSign Shell")
	fmt.Println("Type 'help' for available commands or 'quit' to exit")

	state := &shellState{socketPath: socketPath}
	if err := state.ensureConnected(); err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("Device not available (run 'connect' to retry)")
	}

	homeDir, _ := os.UserHomeDir()
	historyFile := filepath.Join(homeDir, ".hsshell_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            fmt.Sprintf("\033[32m%shsshell>\033[0m ", state.connectionIndicator()),
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		AutoComplete:      completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Printf("Failed to create readline instance, falling back to basic input: %v\n", err)
		startBasicREPL(state)
		return
	}
	defer func() {
		_ = rl.Close()
	}()

	for {
		rl.SetPrompt(fmt.Sprintf("\033[32m%shsshell>\033[0m ", state.connectionIndicator()))

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					fmt.Println("Use 'quit' or 'exit' to exit")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := state.executeCommand(fields[0], fields[1:]); err != nil {
			if errors.Is(err, errExit) {
				break
			}
			fmt.Printf("Error: %v\n", err)
		}
	}

	state.disconnect()
}
