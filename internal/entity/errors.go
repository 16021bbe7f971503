package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation          = errors.New("invalid input")
	ErrLookupFailure       = errors.New("token metadata unavailable")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrQuoteUnavailable    = errors.New("insufficient liquidity")
	ErrTransactionTimeout  = errors.New("transaction confirmation timed out")
	ErrNetwork             = errors.New("chain node unreachable")
	ErrNotFound            = errors.New("user not found")

	ErrMissingKey = fmt.Errorf("%w: private key is missing", ErrNotFound)
)

type FailureReason string

const (
	ReasonInsufficientFunds     FailureReason = "insufficient_funds"
	ReasonInsufficientLiquidity FailureReason = "insufficient_liquidity"
	ReasonExcessivePriceImpact  FailureReason = "excessive_price_impact"
	ReasonReverted              FailureReason = "reverted"
	ReasonRejected              FailureReason = "rejected"
	ReasonUnknown               FailureReason = "unknown"
)

// TransactionError is returned when a write to the chain fails after it was
// built, either on submission or on execution.
type TransactionError struct {
	Reason FailureReason
	Hash   string
	Err    error
}

func (e *TransactionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transaction failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transaction failed (%s)", e.Reason)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Describe is the user facing explanation of the failure.
func (e *TransactionError) Describe() string {
	switch e.Reason {
	case ReasonInsufficientFunds:
		return "Insufficient ETH balance to cover the amount and gas"
	case ReasonInsufficientLiquidity:
		return "Not enough liquidity in the trading pool"
	case ReasonExcessivePriceImpact:
		return "Price impact too high, try a smaller amount"
	case ReasonReverted:
		return "Transaction reverted by the contract"
	case ReasonRejected:
		return "Transaction was rejected"
	default:
		return "Unknown error occurred"
	}
}

// ClassifyFailure maps the failure detail reported by a node or contract to
// a FailureReason.
func ClassifyFailure(err error) FailureReason {
	if err == nil {
		return ReasonUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return ReasonInsufficientFunds
	case strings.Contains(msg, "insufficient_liquidity"):
		return ReasonInsufficientLiquidity
	case strings.Contains(msg, "insufficient_output_amount"):
		return ReasonExcessivePriceImpact
	case strings.Contains(msg, "execution reverted"), strings.Contains(msg, "execution_reverted"):
		return ReasonReverted
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "denied"), strings.Contains(msg, "rejected"):
		return ReasonRejected
	default:
		return ReasonUnknown
	}
}

func NewTransactionError(hash string, err error) *TransactionError {
	return &TransactionError{Reason: ClassifyFailure(err), Hash: hash, Err: err}
}

// TimeoutError carries the hash of a transaction whose confirmation was not
// observed in time. It matches ErrTransactionTimeout with errors.Is.
type TimeoutError struct {
	Hash string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTransactionTimeout, e.Hash)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTransactionTimeout
}
