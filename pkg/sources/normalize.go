package sources

import (
	"fmt"
	"strings"
)

// Symbol normalization maps the many spellings callers use for the same
// asset ("btc-usd", "BTC_USD", "BTC") to one canonical key before any
// adapter-local translation happens. Every adapter normalizes identically.

// Quote suffixes considered equivalent to "quoted in USD". Stripping them
// makes BTCUSD, BTC/USDT and BTC resolve to the same canonical key.
var quoteSuffixes = []string{"USDT", "USDC", "BUSD", "USD"}

// NormalizeSymbol converts a free-form symbol to its canonical form:
// uppercase, separators removed, USD-family quote suffix stripped.
// Examples:
//   - "btc-usd"  -> "BTC"
//   - "BTC_USDT" -> "BTC"
//   - "BTC"      -> "BTC"
//   - "usdt"     -> "USDT" (suffix never strips the whole symbol)
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, sep := range []string{"-", "_", "/", " "} {
		s = strings.ReplaceAll(s, sep, "")
	}

	for _, quote := range quoteSuffixes {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote)
		}
	}

	return s
}

// ValidateSymbol checks a raw symbol for basic plausibility: 2-10
// alphanumeric characters after normalization.
func ValidateSymbol(symbol string) error {
	s := NormalizeSymbol(symbol)
	if len(s) < 2 || len(s) > 10 {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
		}
	}
	return nil
}
