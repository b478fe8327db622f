package broker

import (
	"context"
	"errors"
	"fmt"
)

// Common broker errors
var (
	ErrBrokerNotFound     = errors.New("broker not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("broker not authenticated")
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrInvalidOrderType   = errors.New("invalid order type")
	ErrInvalidProductType = errors.New("invalid product type")
	ErrInvalidOrderSide   = errors.New("invalid order side")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderRejected      = errors.New("order rejected")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrAPIError           = errors.New("API error")
	ErrNetworkError       = errors.New("network error")
	ErrTimeout            = errors.New("request timeout")
)

// BrokerError represents a broker-specific error
type BrokerError struct {
	Broker  string `json:"broker"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Broker, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Broker, e.Code, e.Message)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a new broker error
func NewBrokerError(broker, code, message string, err error) *BrokerError {
	return &BrokerError{
		Broker:  broker,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AsBrokerError normalises any adapter failure into a *BrokerError. A context
// deadline becomes a TIMEOUT error so callers never see a dangling call.
func AsBrokerError(broker string, err error) *BrokerError {
	if err == nil {
		return nil
	}

	var brokerErr *BrokerError
	if errors.As(err, &brokerErr) {
		if errors.Is(err, context.DeadlineExceeded) && brokerErr.Code != "TIMEOUT" {
			return NewBrokerError(broker, "TIMEOUT", "broker call timed out", errors.Join(ErrTimeout, err))
		}
		return brokerErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewBrokerError(broker, "TIMEOUT", "broker call timed out", errors.Join(ErrTimeout, err))
	}
	if errors.Is(err, context.Canceled) {
		return NewBrokerError(broker, "CANCELLED", "broker call cancelled", err)
	}

	return NewBrokerError(broker, "API_ERROR", err.Error(), err)
}

// IsTemporaryError checks if an error is temporary (network, rate limit, etc.)
func IsTemporaryError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, ErrNetworkError) ||
		errors.Is(err, ErrTimeout) {
		return true
	}

	var brokerErr *BrokerError
	if errors.As(err, &brokerErr) {
		switch brokerErr.Code {
		case "RATE_LIMIT", "NETWORK_ERROR", "TIMEOUT", "SERVER_ERROR":
			return true
		}
	}

	return false
}
