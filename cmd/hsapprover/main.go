// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hardsign-dev/hardsign/internal/protocol"
	"github.com/hardsign-dev/hardsign/internal/transport"
	"github.com/hardsign-dev/hardsign/internal/util"
)

// waiting tracks what kind of answer the device expects from us.
type waiting int

const (
	waitingNothing waiting = iota
	waitingStepAck
	waitingDecision
)

func main() {
	dataDir := flag.String("d", "", "Data directory (required, or set HARDSIGN_DATA)")
	flag.Parse()

	resolvedDataDir := util.RequireDeviceDataDir(*dataDir)
	config := util.LoadDeviceConfig(resolvedDataDir)
	socketPath := util.ResolvePath(config.OperatorSocket, resolvedDataDir)

	fmt.Printf("HsApprover - Interactive Device Approval CLI\n")
	fmt.Printf("================================================\n")

	ipcClient := transport.NewIPC(socketPath)
	if err := ipcClient.Dial(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: IPC connection failed: %v\n", err)
		os.Exit(1)
	}
	defer ipcClient.Close()
	fmt.Printf("✓ Connected to device (%s)\n", socketPath)

	status, err := ipcClient.WaitForStatus(10 * time.Second)
	if err != nil {
		if errors.Is(err, transport.ErrAlreadyConnected) {
			fmt.Fprintln(os.Stderr, "Error: Another operator is already connected")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
	fmt.Printf("✓ Device %s, blind signing %s\n", status.Version, onOff(status.BlindSigning))

	ipcClient.ClearReadDeadline()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	inputChan := make(chan string)
	go readStdin(inputChan)

	msgChan := make(chan []byte)
	errChan := make(chan error)
	go func() {
		for {
			message, err := ipcClient.ReadMessage()
			if err != nil {
				errChan <- err
				return
			}
			msgChan <- message
		}
	}()

	state := waitingNothing
	fmt.Println("\nWaiting for device prompts... (Ctrl+C to quit)")

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return

		case err := <-errChan:
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(os.Stderr, "\nConnection closed by device")
			} else {
				fmt.Fprintf(os.Stderr, "\nConnection error: %v\n", err)
			}
			return

		case input := <-inputChan:
			input = strings.ToLower(strings.TrimSpace(input))
			switch state {
			case waitingStepAck:
				if input == "n" || input == "no" {
					_ = ipcClient.SendDecision(false, "rejected by operator")
					state = waitingNothing
					continue
				}
				_ = ipcClient.AckStep()
				state = waitingNothing

			case waitingDecision:
				switch input {
				case "y", "yes":
					_ = ipcClient.SendDecision(true, "")
					fmt.Println("✓ APPROVED")
					state = waitingNothing
				case "n", "no":
					_ = ipcClient.SendDecision(false, "rejected by operator")
					fmt.Println("✗ REJECTED")
					state = waitingNothing
				default:
					fmt.Print("Please enter y/yes or n/no: ")
				}

			default:
				// nothing pending; handle local commands
				switch input {
				case "blind on":
					toggleBlind(ipcClient, true)
				case "blind off":
					toggleBlind(ipcClient, false)
				}
			}

		case message := <-msgChan:
			var base protocol.BaseMessage
			if err := json.Unmarshal(message, &base); err != nil {
				continue
			}

			switch base.Type {
			case protocol.MsgTypeShowStep:
				var step protocol.ShowStepMessage
				if err := json.Unmarshal(message, &step); err != nil {
					continue
				}
				displayStep(&step)
				state = waitingStepAck

			case protocol.MsgTypeDecide:
				var msg protocol.DecideMessage
				if err := json.Unmarshal(message, &msg); err != nil {
					continue
				}
				fmt.Printf("\n%s [y/n]: ", msg.Title)
				state = waitingDecision

			case protocol.MsgTypeFlowResolved:
				var msg protocol.FlowResolvedMessage
				if err := json.Unmarshal(message, &msg); err != nil {
					continue
				}
				if msg.Outcome == "error" && msg.Error != "" {
					fmt.Printf("\nFlow ended: %s (%s)\n", msg.Outcome, msg.Error)
				}
				state = waitingNothing

			case protocol.MsgTypeStatus:
				var st protocol.StatusMessage
				if err := json.Unmarshal(message, &st); err != nil {
					continue
				}
				fmt.Printf("\nDevice status: blind signing %s\n", onOff(st.BlindSigning))

			case protocol.MsgTypeDisplaced:
				fmt.Fprintln(os.Stderr, "\nDisplaced by another operator")
				return

			case protocol.MsgTypeError:
				var errMsg protocol.ErrorMessage
				if err := json.Unmarshal(message, &errMsg); err != nil {
					continue
				}
				fmt.Fprintf(os.Stderr, "Error: %s\n", errMsg.Error)
			}
		}
	}
}

func toggleBlind(c *transport.IPCClient, enabled bool) {
	if err := c.WriteJSON(protocol.SetBlindSigningMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.MsgTypeSetBlindSigning},
		Enabled:     enabled,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func readStdin(ch chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		ch <- scanner.Text()
	}
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// displayStep renders one confirmation screen. Paginated values are
// printed in fixed-width groups the way the device screen would chunk
// them, so the operator can compare against a host display.
func displayStep(step *protocol.ShowStepMessage) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	if step.Total > 1 {
		fmt.Printf("🔐 %s (step %d of %d)\n", step.Header, step.Index+1, step.Total)
	} else {
		fmt.Printf("🔐 %s\n", step.Header)
	}
	fmt.Println(strings.Repeat("=", 60))

	if step.Paginate {
		const chunk = 16
		body := step.Body
		pages := (len(body) + chunk - 1) / chunk
		for i := 0; i < pages; i++ {
			end := (i + 1) * chunk
			if end > len(body) {
				end = len(body)
			}
			fmt.Printf("  [%d/%d] %s\n", i+1, pages, body[i*chunk:end])
		}
	} else {
		fmt.Printf("  %s\n", step.Body)
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Print("Continue? [enter/n]: ")
}
