// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package util

import "strconv"

// BaseUnitDecimals is the number of decimal places between the chain's
// base units and one whole coin.
const BaseUnitDecimals = 9

const baseUnitDivisor = 1_000_000_000

// FormatBaseUnits renders a base-unit amount as a whole-coin decimal
// string. The fractional part keeps its leading zeros and drops its
// trailing zeros, so 1000000 renders as "0.001", 1036 as "0.000001036"
// and 1000000000 as "1.0". Integer math only; amounts are never rounded.
func FormatBaseUnits(units uint64) string {
	quotient := units / baseUnitDivisor
	remainder := units % baseUnitDivisor

	if remainder == 0 {
		return strconv.FormatUint(quotient, 10) + ".0"
	}

	frac := strconv.FormatUint(remainder, 10)
	for len(frac) < BaseUnitDecimals {
		frac = "0" + frac
	}
	for frac[len(frac)-1] == '0' {
		frac = frac[:len(frac)-1]
	}
	return strconv.FormatUint(quotient, 10) + "." + frac
}
