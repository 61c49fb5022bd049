// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/hardsign-dev/hardsign/internal/hdpath"
)

var errExit = errors.New("exit")

func (s *shellState) executeCommand(name string, args []string) error {
	switch name {
	case "help":
		printHelp()
		return nil
	case "quit", "exit":
		fmt.Println("Goodbye!")
		return errExit
	case "connect":
		s.disconnect()
		if err := s.ensureConnected(); err != nil {
			return err
		}
		fmt.Println("Connected")
		return nil
	}

	// Everything below talks to the device.
	if err := s.ensureConnected(); err != nil {
		return err
	}
	err := s.runDeviceCommand(name, args)
	if err != nil && isConnError(err) {
		// Drop the stale connection so the next command redials.
		s.disconnect()
	}
	return err
}

func (s *shellState) runDeviceCommand(name string, args []string) error {
	switch name {
	case "version":
		v, err := s.device.getVersion()
		if err != nil {
			return err
		}
		fmt.Printf("Device app version: %s\n", v)
		return nil

	case "pubkey":
		path, err := parsePathArg(args)
		if err != nil {
			return err
		}
		pub, _, err := s.device.getPublicKey(path, false)
		if err != nil {
			return err
		}
		fmt.Printf("Public key: %s\n", hex.EncodeToString(pub))
		return nil

	case "address":
		path, err := parsePathArg(args)
		if err != nil {
			return err
		}
		_, addr, err := s.device.getPublicKey(path, false)
		if err != nil {
			return err
		}
		fmt.Printf("%s address: %s\n", path.Network().Label(), formatAddress(addr))
		return nil

	case "verify":
		path, err := parsePathArg(args)
		if err != nil {
			return err
		}
		fmt.Println("Confirm the address on the device...")
		_, addr, err := s.device.verifyAddress(path)
		if err != nil {
			return err
		}
		fmt.Printf("Confirmed %s address: %s\n", path.Network().Label(), formatAddress(addr))
		return nil

	case "sign":
		if len(args) != 2 {
			return fmt.Errorf("usage: sign <path> <hex|@file>")
		}
		path, err := hdpath.FromString(args[0])
		if err != nil {
			return err
		}
		tx, err := readTxArg(args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Signing %d bytes, review on the device...\n", len(tx))
		sig, err := s.device.sign(path, tx)
		if err != nil {
			return err
		}
		fmt.Printf("Signature: %s\n", hex.EncodeToString(sig))

		// Check the signature against the device's own key.
		pub, _, err := s.device.getPublicKey(path, false)
		if err != nil {
			return err
		}
		digest := blake2b.Sum256(tx)
		if !ed25519.Verify(pub, digest[:], sig) {
			return fmt.Errorf("signature does not verify against device public key")
		}
		fmt.Println("Signature verified")
		return nil

	case "apdu":
		// Raw escape hatch: apdu <ins> <p1> [hexdata]
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("usage: apdu <ins> <p1> [hexdata]")
		}
		ins, err := parseByteArg(args[0])
		if err != nil {
			return err
		}
		p1, err := parseByteArg(args[1])
		if err != nil {
			return err
		}
		var data []byte
		if len(args) == 3 {
			data, err = hex.DecodeString(strings.TrimPrefix(args[2], "0x"))
			if err != nil {
				return fmt.Errorf("invalid data hex: %w", err)
			}
		}
		resp, err := s.device.exchange(ins, p1, data)
		if err != nil {
			return err
		}
		if len(resp) == 0 {
			fmt.Println("OK, no data")
		} else {
			fmt.Printf("OK, %d bytes: %s\n", len(resp), hex.EncodeToString(resp))
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q (try 'help')", name)
	}
}

func parseByteArg(arg string) (byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(arg, "0x"))
	if err != nil || len(b) != 1 {
		return 0, fmt.Errorf("expected a single hex byte, got %q", arg)
	}
	return b[0], nil
}

func parsePathArg(args []string) (hdpath.Path, error) {
	if len(args) != 1 {
		return hdpath.Path{}, fmt.Errorf("expected a derivation path, e.g. m/44'/4218'/0'/0'/0'")
	}
	return hdpath.FromString(args[0])
}

// readTxArg reads transaction bytes from a hex string or, with an
// @ prefix, from a file containing hex.
func readTxArg(arg string) ([]byte, error) {
	raw := arg
	if strings.HasPrefix(arg, "@") {
		data, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, err
		}
		raw = strings.TrimSpace(string(data))
	}
	raw = strings.TrimPrefix(raw, "0x")
	tx, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction hex: %w", err)
	}
	if len(tx) == 0 {
		return nil, fmt.Errorf("transaction is empty")
	}
	return tx, nil
}

// formatAddress renders a binary address in the display form shown on
// the device screen.
func formatAddress(addr []byte) string {
	return "0x" + hex.EncodeToString(addr)
}

func isConnError(err error) bool {
	if errors.Is(err, os.ErrClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "EOF")
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  version                  Show the device app version")
	fmt.Println("  pubkey <path>            Fetch the public key for a derivation path")
	fmt.Println("  address <path>           Show the address for a derivation path")
	fmt.Println("  verify <path>            Confirm the address on the device screen")
	fmt.Println("  sign <path> <hex|@file>  Sign a transaction (review on device)")
	fmt.Println("  apdu <ins> <p1> [hex]    Send a raw APDU (hex bytes)")
	fmt.Println("  connect                  Reconnect to the device socket")
	fmt.Println("  quit                     Exit the shell")
	fmt.Println()
	fmt.Println("Paths use hardened BIP32 notation, e.g. m/44'/4218'/0'/0'/0'")
}
