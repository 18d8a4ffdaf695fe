package httpapi

import "strings"

// baseAsset returns the base half of a "base-quote" symbol (e.g. "eth" from
// "eth-btc"), used to look up the borrow terms for a short position.
func baseAsset(symbol string) string {
	base, _, _ := strings.Cut(symbol, "-")
	return base
}

// quoteAsset returns the quote half of a "base-quote" symbol.
func quoteAsset(symbol string) string {
	_, quote, _ := strings.Cut(symbol, "-")
	return quote
}
