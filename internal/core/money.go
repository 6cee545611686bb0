// Package core implements the ledger computation at the heart of divvy:
// split validation, balance aggregation, normalization, and settlement
// planning. All monetary arithmetic uses integer minor units (cents); no
// floating-point amount ever enters a computation. Every function here is a
// pure computation over a snapshot passed in by the caller, holds no state
// between invocations, and is safe to run concurrently.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in integer minor units of a currency.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// String formats the amount as a plain decimal with two fractional digits.
func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// ParseDecimalToCents converts a decimal string to cents. It accepts both dot
// (12.34) and comma (12,34) separators and rounds anything beyond the second
// fractional digit to the nearest cent, ties to even. Only positive amounts
// are accepted.
//
// This is the single point where user-supplied decimal text becomes integer
// minor units; storage and core never see the original string.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}

	cents := iv * 100
	switch {
	case len(fracPart) == 1:
		cents += int64(fracPart[0]-'0') * 10
	case len(fracPart) >= 2:
		cents += int64(fracPart[0]-'0')*10 + int64(fracPart[1]-'0')
		cents += roundHalfEvenTail(cents, fracPart[2:])
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// roundHalfEvenTail decides whether the digits beyond the second fractional
// place round the cent value up by one, using round-half-to-even.
func roundHalfEvenTail(cents int64, tail string) int64 {
	if tail == "" {
		return 0
	}
	if tail[0] > '5' {
		return 1
	}
	if tail[0] < '5' {
		return 0
	}
	// Exactly .xx5...: any nonzero digit after the 5 rounds up, otherwise
	// round to the even cent.
	for i := 1; i < len(tail); i++ {
		if tail[i] != '0' {
			return 1
		}
	}
	if cents%2 != 0 {
		return 1
	}
	return 0
}
