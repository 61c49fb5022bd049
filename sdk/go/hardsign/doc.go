// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

/*
Package hardsign provides a Go client for signing IOTA transactions via
a hsignerd device.

# Quick Start

	import "github.com/hardsign-dev/hardsign/sdk/go/hardsign"

	// Connect to the device socket
	client, err := hardsign.Dial("/run/hardsign/apdu.sock")
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	// Export a public key (no prompt)
	path := hardsign.NewPath(hardsign.CoinIOTA, 0, 0, 0)
	pub, err := client.GetPublicKey(path, false)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hardsign.FormatAddress(hardsign.AddressFromPublicKey(pub)))

	// Sign a transaction (waits for operator approval on device)
	sig, err := client.SignTransaction(path, rawTx)
	if errors.Is(err, hardsign.ErrRejected) {
		// operator said no
	}

# Errors

Device refusals map to sentinel errors: ErrRejected when the operator
declines, ErrBlindSigningDisabled when an unrecognized transaction is
refused by policy, ErrInvalidPath for paths outside the device's
allowlist and ErrPayloadTooLarge for transactions over the device
buffer. Use errors.Is to distinguish them.

Signing calls block without a timeout while the device waits for the
operator. Cancel by closing the client, which fails the in-flight call.
*/
package hardsign
