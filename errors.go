package token

import (
	"errors"
	"fmt"

	"github.com/xraph/token/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Authorization errors
	ErrUnauthorized = errors.New("token: unauthorized")

	// Transfer errors
	ErrAccountFrozen       = errors.New("token: account frozen")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrOverflow            = types.ErrOverflow

	// Integrity errors
	ErrInvariantViolated = errors.New("token: invariant violated")

	// Store errors
	ErrStoreClosed = errors.New("token: store is closed")
)

// Operation names reported in OperationError and to plugins.
const (
	OpTransfer          = "transfer"
	OpSetPrices         = "set_prices"
	OpFreeze            = "freeze"
	OpMint              = "mint"
	OpTransferOwnership = "transfer_ownership"
)

// OperationError reports a rejected ledger operation. Err is always one of
// the sentinel errors above.
type OperationError struct {
	Op     string
	Caller types.Principal
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s by %s: %v", e.Op, e.Caller, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// IsAuthorizationError returns true if the caller was not allowed to perform
// the operation.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTransferError returns true if the error stems from a transfer
// precondition.
func IsTransferError(err error) bool {
	return errors.Is(err, ErrAccountFrozen) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrOverflow)
}

// ErrorKind returns the short kind name of a ledger error: "Unauthorized",
// "AccountFrozen", "InsufficientBalance", "Overflow" or "InvariantViolated".
// It returns "" for nil and "Unknown" for anything else.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrAccountFrozen):
		return "AccountFrozen"
	case errors.Is(err, ErrInsufficientBalance):
		return "InsufficientBalance"
	case errors.Is(err, ErrOverflow):
		return "Overflow"
	case errors.Is(err, ErrInvariantViolated):
		return "InvariantViolated"
	default:
		return "Unknown"
	}
}
