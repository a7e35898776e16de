package feed

import "strings"

// Stablecoin quotes priced as USD.
var stablecoinAliases = map[string]string{
	"USDT": "USD",
	"USDC": "USD",
	"BUSD": "USD",
	"DAI":  "USD",
	"TUSD": "USD",
	"USDD": "USD",
	"USDP": "USD",
}

// Wrapped assets priced as their underlying.
var baseCurrencyAliases = map[string]string{
	"WBTC":  "BTC",
	"WETH":  "ETH",
	"STETH": "ETH",
}

// NormalizeSymbol converts a trading pair to the form entries are keyed by.
// Examples:
//   - lunc/usdt -> LUNC/USD
//   - WBTC/USD -> BTC/USD
//   - LUNC/EUR -> LUNC/EUR
//
// Symbols that are not a BASE/QUOTE pair are only upper-cased.
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 {
		return symbol
	}

	base, quote := parts[0], parts[1]
	if normalized, ok := baseCurrencyAliases[base]; ok {
		base = normalized
	}
	if normalized, ok := stablecoinAliases[quote]; ok {
		quote = normalized
	}
	return base + "/" + quote
}
