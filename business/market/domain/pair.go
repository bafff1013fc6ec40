// Package domain contains the core domain types for the market data context.
package domain

import (
	"fmt"
	"strings"
)

// Side represents the side of a trade (buy or sell).
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Pair represents a trading pair, e.g. BTC/USDT.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses a "BASE/QUOTE" pair string.
func ParsePair(s string) (Pair, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok {
		return Pair{}, fmt.Errorf("pair must be BASE/QUOTE, got %q", s)
	}
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || quote == "" {
		return Pair{}, fmt.Errorf("pair must be BASE/QUOTE, got %q", s)
	}
	if base == quote {
		return Pair{}, fmt.Errorf("pair base and quote must differ, got %q", s)
	}
	return Pair{Base: base, Quote: quote}, nil
}

// MustParsePair is ParsePair for static pair literals.
func MustParsePair(s string) Pair {
	p, err := ParsePair(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the canonical "BASE/QUOTE" form.
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// Symbol returns the concatenated exchange symbol (e.g. "BTCUSDT").
func (p Pair) Symbol() string {
	return p.Base + p.Quote
}

// IsZero reports whether the pair is unset.
func (p Pair) IsZero() bool {
	return p.Base == "" && p.Quote == ""
}
