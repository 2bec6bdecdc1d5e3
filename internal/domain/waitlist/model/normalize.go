// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeCustomerName applies Unicode NFC normalization to a customer-
// supplied name and trims surrounding whitespace, so two entries submitted
// with visually identical but byte-distinct Unicode forms (e.g. a
// precomposed "é" vs. "e" + combining acute) compare equal wherever
// CustomerName is used for display or deduplication.
func NormalizeCustomerName(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}
