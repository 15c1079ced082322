// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils holds small text helpers shared by the commands.
package textutils

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/unicode/norm"
)

var printer = message.NewPrinter(language.English)

// FormatInt formats an integer with thousands separators for human readability.
func FormatInt(n int64) string {
	return printer.Sprintf("%d", n)
}

// NormalizePlace folds compatibility characters (full-width letters, digits
// and punctuation) and trims surrounding space.
func NormalizePlace(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// SplitPlaces splits a field holding several places separated by sep.
// Full-width separators are accepted. Blank parts are dropped.
func SplitPlaces(field string, sep string) []string {
	field = norm.NFKC.String(field)
	sep = norm.NFKC.String(sep)

	parts := strings.Split(field, sep)
	places := make([]string, 0, len(parts))

	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			places = append(places, p)
		}
	}

	return places
}
