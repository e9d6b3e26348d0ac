package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Token describes a tradable asset and how its amounts are represented.
type Token struct {
	Symbol   string
	Decimals int32
	// RefPrice is the value of one unit in the reference currency.
	RefPrice decimal.Decimal
}

// TokenSet is an immutable lookup of tokens by symbol.
type TokenSet struct {
	reference string
	tokens    map[string]Token
}

// NewTokenSet builds a token set. The reference symbol must be present and priced
// at exactly one reference unit, since profits are added to reference amounts.
func NewTokenSet(reference string, tokens []Token) (*TokenSet, error) {
	set := &TokenSet{
		reference: reference,
		tokens:    make(map[string]Token, len(tokens)),
	}

	for _, tok := range tokens {
		if tok.Symbol == "" {
			return nil, fmt.Errorf("%w: empty symbol", ErrUnknownToken)
		}
		if tok.Decimals < 0 {
			return nil, fmt.Errorf("token %s: negative decimals", tok.Symbol)
		}
		if !tok.RefPrice.IsPositive() {
			return nil, fmt.Errorf("token %s: reference price must be positive", tok.Symbol)
		}
		set.tokens[tok.Symbol] = tok
	}

	ref, ok := set.tokens[reference]
	if !ok {
		return nil, fmt.Errorf("%w: reference token %s", ErrUnknownToken, reference)
	}
	if !ref.RefPrice.Equal(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("reference token %s: reference price must be 1, got %s", reference, ref.RefPrice)
	}

	return set, nil
}

// Reference returns the symbol profits are expressed in.
func (s *TokenSet) Reference() string {
	return s.reference
}

// Get looks up a token by symbol.
func (s *TokenSet) Get(symbol string) (Token, bool) {
	tok, ok := s.tokens[symbol]
	return tok, ok
}

// Symbols returns every configured symbol.
func (s *TokenSet) Symbols() []string {
	out := make([]string, 0, len(s.tokens))
	for sym := range s.tokens {
		out = append(out, sym)
	}
	return out
}

// Round truncates amount to the token's precision.
func (s *TokenSet) Round(symbol string, amount decimal.Decimal) (decimal.Decimal, error) {
	tok, ok := s.tokens[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	return amount.Truncate(tok.Decimals), nil
}

// ToReference converts an amount of symbol into reference units.
func (s *TokenSet) ToReference(symbol string, amount decimal.Decimal) (decimal.Decimal, error) {
	tok, ok := s.tokens[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	return amount.Mul(tok.RefPrice), nil
}
