package services

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a signal status write is not
// pending -> filled or pending -> rejected
var ErrInvalidTransition = errors.New("invalid signal status transition")

// ErrStrategyNotFound is returned when no strategy has the requested id
var ErrStrategyNotFound = errors.New("strategy not found")

// Risk check names reported in RiskRejected
const (
	CheckSymbolAllowed = "symbol_allowed"
	CheckPositionSize  = "position_size"
	CheckDailyLoss     = "daily_loss"
	CheckMarketHours   = "market_hours"
	CheckOrderRate     = "order_rate"
)

// ValidationError reports a malformed inbound signal. Nothing is persisted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// SizingError reports a price or sizing rule that cannot yield a positive quantity
type SizingError struct {
	Reason string
}

func (e *SizingError) Error() string {
	return "sizing failed: " + e.Reason
}

// RiskRejected reports the first risk check a strategy execution failed
type RiskRejected struct {
	Check  string
	Detail string
}

func (e *RiskRejected) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("risk check %s rejected: %s", e.Check, e.Detail)
	}
	return fmt.Sprintf("risk check %s rejected", e.Check)
}

// ExecutionError reports a failed live execution. Err is usually a *broker.BrokerError.
type ExecutionError struct {
	Broker string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution on %s failed: %v", e.Broker, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed ledger or store write. A retried webhook
// may produce a duplicate signal.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
