package engine

import "errors"

// Error definitions for zero-tolerance error handling. Every error aborts the
// whole operation; there is no local recovery or retry inside the engine.
var (
	// Configuration errors
	ErrNotConfigured   = errors.New("engine has not been configured")
	ErrDeactivated     = errors.New("engine has been deactivated")
	ErrAdapterMismatch = errors.New("adapter serves a different currency")
	ErrUnknownCurrency = errors.New("currency is not one of the pool pair")
	ErrUnbindWithFunds = errors.New("cannot unbind a yield source that still holds shares")

	// Operation errors
	ErrZeroAmounts     = errors.New("computed amounts round to zero")
	ErrNoBinding       = errors.New("currency has no yield source bound")
	ErrSlippageBounds  = errors.New("realized price outside slippage bounds")
	ErrNothingToSweep  = errors.New("no accumulated tax to collect")
	ErrRecipientEmpty  = errors.New("recipient address cannot be empty")
	ErrPoolUnavailable = errors.New("pool controller query failed")
)
