// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package main

import (
	"flag"
	"fmt"

	"github.com/hardsign-dev/hardsign/internal/util"
	"github.com/hardsign-dev/hardsign/internal/version"
)

func main() {
	dataDir := flag.String("d", "", "device data directory (or set HARDSIGN_DATA)")
	socket := flag.String("socket", "", "APDU socket path (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hsshell %s\n", version.String())
		return
	}

	util.InitLogger()

	socketPath := *socket
	if socketPath == "" {
		dir := util.RequireDeviceDataDir(*dataDir)
		cfg := util.LoadDeviceConfig(dir)
		socketPath = util.ResolvePath(cfg.APDUSocket, dir)
	}

	startREPL(socketPath)
}
