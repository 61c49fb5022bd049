// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/hardsign-dev/hardsign/internal/crypto"
	"github.com/hardsign-dev/hardsign/internal/device"
	"github.com/hardsign-dev/hardsign/internal/seed"
	"github.com/hardsign-dev/hardsign/internal/settings"
	"github.com/hardsign-dev/hardsign/internal/util"
	"github.com/hardsign-dev/hardsign/internal/version"
)

func main() {
	dataDir := flag.String("d", "", "Data directory (required, or set HARDSIGN_DATA)")
	initSeed := flag.Bool("init", false, "Initialize a new sealed seed and exit")
	importMnemonic := flag.Bool("import", false, "With -init: import a BIP-39 mnemonic instead of generating a seed")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hsignerd %s\n", version.String())
		return
	}

	util.InitLogger()
	resolvedDataDir := util.RequireDeviceDataDir(*dataDir)

	if *initSeed {
		if err := runInit(resolvedDataDir, *importMnemonic); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(resolvedDataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readPassphrase prompts without echo.
func readPassphrase(promptText string) ([]byte, error) {
	fmt.Print(promptText)
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return pass, nil
}

// runInit creates the sealed seed file. It refuses to overwrite an
// existing seed; destroying a seed is a manual, deliberate act.
func runInit(dataDir string, importMnemonic bool) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	seedPath := filepath.Join(dataDir, util.SeedFileName)
	if _, err := os.Stat(seedPath); err == nil {
		return fmt.Errorf("seed file already exists at %s", seedPath)
	}

	var deviceSeed []byte
	var err error
	if importMnemonic {
		fmt.Print("Enter BIP-39 mnemonic: ")
		reader := bufio.NewReader(os.Stdin)
		line, rerr := reader.ReadString('\n')
		if rerr != nil {
			return fmt.Errorf("reading mnemonic: %w", rerr)
		}
		deviceSeed, err = seed.FromMnemonic(strings.TrimSpace(line))
		if err != nil {
			return fmt.Errorf("invalid mnemonic: %w", err)
		}
	} else {
		deviceSeed, err = seed.NewRandomSeed()
		if err != nil {
			return fmt.Errorf("generating seed: %w", err)
		}
	}
	defer crypto.ZeroBytes(deviceSeed)

	pass, err := readPassphrase("Choose passphrase: ")
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(pass)
	confirm, err := readPassphrase("Repeat passphrase: ")
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(confirm)
	if string(pass) != string(confirm) {
		return fmt.Errorf("passphrases do not match")
	}
	if len(pass) == 0 {
		return fmt.Errorf("empty passphrase")
	}

	envelope, err := crypto.SealSeed(deviceSeed, pass)
	if err != nil {
		return fmt.Errorf("sealing seed: %w", err)
	}
	if err := os.WriteFile(seedPath, envelope, 0600); err != nil {
		return fmt.Errorf("writing seed file: %w", err)
	}

	fmt.Printf("✓ Sealed seed written to %s\n", seedPath)
	return nil
}

func run(dataDir string) error {
	cfg := util.LoadDeviceConfig(dataDir)
	apduSocket := util.ResolvePath(cfg.APDUSocket, dataDir)
	operatorSocket := util.ResolvePath(cfg.OperatorSocket, dataDir)

	// Unseal the device seed.
	envelope, err := os.ReadFile(filepath.Join(dataDir, util.SeedFileName))
	if err != nil {
		return fmt.Errorf("reading seed file (run with -init first?): %w", err)
	}
	pass, err := readPassphrase("Enter passphrase: ")
	if err != nil {
		return err
	}
	deviceSeed, err := crypto.OpenSeed(envelope, pass)
	crypto.ZeroBytes(pass)
	if err != nil {
		return err
	}
	sealed := crypto.NewSecureBytes(deviceSeed)
	crypto.ZeroBytes(deviceSeed)
	defer sealed.Destroy()

	store := settings.NewStore(dataDir)
	hub := newOperatorHub(store)
	dev := device.New(sealed, store, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := startSettingsWatcher(ctx, store, hub); err != nil {
		util.Logger.Warn("settings watcher disabled", "err", err)
	}

	// Operator IPC listener
	_ = os.Remove(operatorSocket)
	opLn, err := net.Listen("unix", operatorSocket)
	if err != nil {
		return fmt.Errorf("operator socket: %w", err)
	}
	defer os.Remove(operatorSocket)
	go hub.serve(ctx, opLn)
	util.Logger.Info("operator socket ready", "path", operatorSocket)

	// APDU listener for hosts
	_ = os.Remove(apduSocket)
	apduLn, err := net.Listen("unix", apduSocket)
	if err != nil {
		return fmt.Errorf("APDU socket: %w", err)
	}
	defer os.Remove(apduSocket)
	go func() {
		<-ctx.Done()
		apduLn.Close()
	}()
	util.Logger.Info("device ready", "socket", apduSocket, "version", version.String())

	// One host at a time. Commands are strictly sequential, so serving
	// connections sequentially keeps the device model honest.
	for {
		conn, err := apduLn.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := dev.Serve(ctx, conn); err != nil && ctx.Err() == nil {
			util.Logger.Warn("host connection ended", "err", err)
		}
		conn.Close()
	}
}
