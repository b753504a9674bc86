package util

import (
	"strings"
)

// NormalizeSymbol converts path-safe symbols like "btc-usdt" into "BTC/USDT"
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "-", "/")
	s = strings.ReplaceAll(s, "_", "/")
	return s
}

// SplitSymbol returns the base and quote assets of a BASE/QUOTE symbol
func SplitSymbol(symbol string) (string, string, bool) {
	base, quote, ok := strings.Cut(NormalizeSymbol(symbol), "/")
	if !ok || base == "" || quote == "" {
		return "", "", false
	}
	return base, quote, true
}
