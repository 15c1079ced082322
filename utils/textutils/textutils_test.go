// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatInt(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{12, "12"},
		{1234, "1,234"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatInt(tc.input))
		})
	}
}

func TestNormalizePlace(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  北門  ", "北門"},
		{"台南市北門區", "台南市北門區"},
		{"１０１大樓", "101大樓"},
		{"ＡＢＣ公園", "ABC公園"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizePlace(tc.input))
		})
	}
}

func TestSplitPlaces(t *testing.T) {
	assert.Equal(t, []string{"北門", "七股", "將軍"}, SplitPlaces("北門; 七股；將軍", ";"))
	assert.Equal(t, []string{"北門"}, SplitPlaces(" ;北門; ;", ";"))
	assert.Empty(t, SplitPlaces("", ";"))
}
