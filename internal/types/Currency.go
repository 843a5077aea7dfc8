/*

This is a custom type for currencies which contains all the state needed to
identify and validate the two assets served by a rehypothecation engine
instance.

*/

package types

import (
	"errors"
	"fmt"
)

// Currency identifies one side of the pool pair.
type Currency struct {
	Denom    string `json:"denom"`     // e.g., "uusdc" or "ibc/273...A8"
	Symbol   string `json:"symbol"`    // e.g., "usdc"
	Decimals int    `json:"decimals"`  // e.g., 6 = 1_000_000 base units per token
	Native   bool   `json:"is_native"` // True if this is the chain-native asset and vault calls go through wrap/unwrap
}

var (
	ErrEmptyDenom       = errors.New("currency denom cannot be empty")
	ErrInvalidDecimals  = errors.New("currency decimals out of range")
	ErrCurrencyMismatch = errors.New("currency does not match binding")
)

// Validate checks the currency definition for internal consistency.
func (c Currency) Validate() error {
	if c.Denom == "" {
		return ErrEmptyDenom
	}
	if c.Decimals < 0 || c.Decimals > 18 {
		return fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidDecimals, c.Decimals)
	}
	return nil
}

// Equal compares currencies by denom only; metadata may be enriched later.
func (c Currency) Equal(other Currency) bool {
	return c.Denom == other.Denom
}
