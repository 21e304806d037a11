package symbol

import (
	"strings"
)

// quoteCurrencies ordered by how often they appear as pair suffixes.
var quoteCurrencies = []string{"USDT", "FDUSD", "USDC", "TUSD", "BUSD", "BTC", "ETH", "BNB"}

type Pair struct {
	Base  string
	Quote string
}

// Exchange returns the concatenated exchange form, e.g. "BTCUSDT".
func (p Pair) Exchange() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	return p.Base + p.Quote
}

func (p Pair) Valid() bool {
	return p.Base != "" && p.Quote != ""
}

// Parse splits a raw symbol into base and quote. Accepts "BTC/USDT",
// "BTCUSDT" and exchange-suffixed forms like "BTC/USDT:USDT".
func Parse(s string) Pair {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Pair{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Pair{
			Base:  strings.TrimSpace(parts[0]),
			Quote: strings.TrimSpace(parts[1]),
		}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Pair{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Pair{}
}

// NormalizeCode uppercases and trims a bare asset code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Join builds the exchange form from a base code and quote currency.
func Join(base, quote string) string {
	base = NormalizeCode(base)
	quote = NormalizeCode(quote)
	if base == "" || quote == "" {
		return ""
	}
	return base + quote
}

// BaseOf strips a known quote suffix, for display lists like [BTC ETH].
// Unknown suffixes are returned as-is.
func BaseOf(pairSymbol string) string {
	if p := Parse(pairSymbol); p.Valid() {
		return p.Base
	}
	return strings.ToUpper(strings.TrimSpace(pairSymbol))
}

// Bases maps BaseOf over a list, preserving order.
func Bases(pairSymbols []string) []string {
	if len(pairSymbols) == 0 {
		return nil
	}
	out := make([]string, 0, len(pairSymbols))
	for _, s := range pairSymbols {
		out = append(out, BaseOf(s))
	}
	return out
}

// Dedupe drops duplicates while preserving first-seen order.
func Dedupe(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
