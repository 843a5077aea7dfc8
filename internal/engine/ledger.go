/*

This file contains the fungible share ledger. Shares are claims on the pooled
reserves held by one engine instance; the engine itself never owns any.
Burning hands back a receipt that the vault-withdrawal path requires, so the
destructive internal update provably happens before any external call.

*/

package engine

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrZeroShares        = errors.New("share amount must be positive")
	ErrInsufficientShare = errors.New("insufficient share balance")
	ErrEmptyHolder       = errors.New("holder address cannot be empty")
)

type shareLedger struct {
	balances    map[string]sdkmath.Int
	totalSupply sdkmath.Int
}

func newShareLedger() *shareLedger {
	return &shareLedger{
		balances:    make(map[string]sdkmath.Int),
		totalSupply: sdkmath.ZeroInt(),
	}
}

func (l *shareLedger) TotalSupply() sdkmath.Int {
	return l.totalSupply
}

func (l *shareLedger) BalanceOf(holder string) sdkmath.Int {
	if bal, ok := l.balances[holder]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

func (l *shareLedger) Mint(holder string, shares sdkmath.Int) error {
	if holder == "" {
		return ErrEmptyHolder
	}
	if shares.IsNil() || !shares.IsPositive() {
		return ErrZeroShares
	}
	l.balances[holder] = l.BalanceOf(holder).Add(shares)
	l.totalSupply = l.totalSupply.Add(shares)
	return nil
}

// burnReceipt proves shares were destroyed. Vault withdrawals on the remove
// path only accept one, which pins the burn strictly before the external call.
type burnReceipt struct {
	holder string
	shares sdkmath.Int
}

func (l *shareLedger) Burn(holder string, shares sdkmath.Int) (burnReceipt, error) {
	if holder == "" {
		return burnReceipt{}, ErrEmptyHolder
	}
	if shares.IsNil() || !shares.IsPositive() {
		return burnReceipt{}, ErrZeroShares
	}
	bal := l.BalanceOf(holder)
	if bal.LT(shares) {
		return burnReceipt{}, fmt.Errorf("%w: %s holds %s, burning %s", ErrInsufficientShare, holder, bal, shares)
	}
	l.balances[holder] = bal.Sub(shares)
	l.totalSupply = l.totalSupply.Sub(shares)
	return burnReceipt{holder: holder, shares: shares}, nil
}
