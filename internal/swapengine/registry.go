package swapengine

import (
	"strings"

	"github.com/aman-zulfiqar/chattrade/internal/constants"
)

// TokenRegistry maps the supported symbols to addresses. It holds exactly
// the native asset and one reference token.
type TokenRegistry struct {
	native        Token
	reference     Token
	wrappedNative string
}

func NewTokenRegistry(reference Token, wrappedNative string) *TokenRegistry {
	reference.Symbol = strings.ToUpper(reference.Symbol)
	return &TokenRegistry{
		native: Token{
			Symbol:   constants.NativeSymbol,
			Address:  constants.NativeToken,
			Decimals: constants.NativeDecimals,
		},
		reference:     reference,
		wrappedNative: wrappedNative,
	}
}

// DefaultTokenRegistry is ETH and USDC on Arbitrum Sepolia.
func DefaultTokenRegistry() *TokenRegistry {
	return NewTokenRegistry(Token{Symbol: "USDC", Address: constants.USDCAddress, Decimals: 6}, constants.WETHAddress)
}

func (r *TokenRegistry) Native() Token    { return r.native }
func (r *TokenRegistry) Reference() Token { return r.reference }

func (r *TokenRegistry) BySymbol(symbol string) (Token, bool) {
	switch strings.ToUpper(strings.TrimSpace(symbol)) {
	case r.native.Symbol:
		return r.native, true
	case r.reference.Symbol:
		return r.reference, true
	}
	return Token{}, false
}

func (r *TokenRegistry) ByAddress(address string) (Token, bool) {
	switch {
	case strings.EqualFold(address, r.native.Address):
		return r.native, true
	case strings.EqualFold(address, r.reference.Address):
		return r.reference, true
	}
	return Token{}, false
}

// RouterAddress is the address the router expects in a path. The router
// only knows WETH, never the native sentinel.
func (r *TokenRegistry) RouterAddress(address string) string {
	if IsNative(address) {
		return r.wrappedNative
	}
	return address
}

// Symbols lists the supported symbols, native first.
func (r *TokenRegistry) Symbols() []string {
	return []string{r.native.Symbol, r.reference.Symbol}
}
