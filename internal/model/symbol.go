package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidSymbol is returned when a raw symbol (or an uploaded filename)
// doesn't normalize to a valid ticker. Callers check with errors.Is.
var ErrInvalidSymbol = errors.New("invalid symbol format")

// MaxSymbolLength bounds ticker length. NYSE/NASDAQ tickers top out around
// five characters; ten leaves room for suffixed symbols like BRK.B written
// as BRKB.
const MaxSymbolLength = 10

// symbolPattern is what a normalized ticker must match before any storage
// or fetch operation is attempted.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// keySuffix is appended to a ticker to form its storage key / filename.
const keySuffix = "_chart.png"

// NormalizeSymbol uppercases and validates a raw symbol string, returning
// the canonical ticker. Empty input, overlong input, and anything outside
// [A-Za-z0-9] fail with ErrInvalidSymbol.
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" || len(symbol) > MaxSymbolLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
	}
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
	}
	return symbol, nil
}

// StorageKey derives the filename / lookup key for a ticker's cached chart:
// "AAPL" → "AAPL_chart.png". Total for any valid ticker.
func StorageKey(symbol string) string {
	return symbol + keySuffix
}

// SymbolFromKey recovers the ticker from a storage key. It is the lossless
// inverse of StorageKey: SymbolFromKey(StorageKey(s)) == s for any valid
// symbol. Keys that don't match the <TICKER>_chart.png pattern fail with
// ErrInvalidSymbol — strictly, with no normalization: the embedded ticker
// must already be the canonical uppercase form, so "aapl_chart.png" is
// rejected rather than read as AAPL. The upload path uses this to derive
// identity from an uploaded filename.
func SymbolFromKey(key string) (string, error) {
	if !strings.HasSuffix(key, keySuffix) {
		return "", fmt.Errorf("%w: key %q", ErrInvalidSymbol, key)
	}
	symbol := strings.TrimSuffix(key, keySuffix)
	if symbol == "" || len(symbol) > MaxSymbolLength || !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: key %q", ErrInvalidSymbol, key)
	}
	return symbol, nil
}
