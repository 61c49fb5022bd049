// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

// Package policy gates signing on what the decoder recognized and on
// the operator's blind-signing toggle.
package policy

import (
	"encoding/hex"
	"fmt"

	"github.com/hardsign-dev/hardsign/internal/apdu"
	"github.com/hardsign-dev/hardsign/internal/hdpath"
	"github.com/hardsign-dev/hardsign/internal/prompt"
	"github.com/hardsign-dev/hardsign/internal/txdec"
	"github.com/hardsign-dev/hardsign/internal/util"
)

// Review maps a decoded payload to the confirmation steps the operator
// must see before the device signs.
//
// Recognized transfers always go to confirmation. Unrecognized payloads
// are refused outright when blind signing is off; nothing is shown, the
// host just gets the refusal status. With blind signing on, the
// operator confirms the payload digest behind an explicit warning.
func Review(p txdec.Parsed, network hdpath.Network, blindEnabled bool) ([]prompt.Step, error) {
	switch p.Kind {
	case txdec.KindTransfer:
		return transferSteps(p, network), nil
	case txdec.KindUnknown:
		if !blindEnabled {
			return nil, apdu.ErrBlindSigningDisabled
		}
		return blindSteps(p), nil
	default:
		return nil, apdu.ErrMalformedPayload
	}
}

func transferSteps(p txdec.Parsed, network hdpath.Network) []prompt.Step {
	label := network.Label()
	return []prompt.Step{
		{
			Header: "Send",
			Body:   fmt.Sprintf("%s %s", util.FormatBaseUnits(p.Amount), label),
		},
		{
			Header:   "To",
			Body:     p.Recipient.String(),
			Paginate: true,
		},
		{
			Header: "Max Gas",
			Body:   fmt.Sprintf("%s %s", util.FormatBaseUnits(p.MaxGas), label),
		},
	}
}

func blindSteps(p txdec.Parsed) []prompt.Step {
	return []prompt.Step{
		{
			Header: "WARNING",
			Body:   "Transaction not recognized. It will be signed blindly.",
		},
		{
			Header:   "Transaction hash",
			Body:     "0x" + hex.EncodeToString(p.Digest[:]),
			Paginate: true,
		},
	}
}
