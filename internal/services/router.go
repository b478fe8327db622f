package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 30 * time.Second

// AdapterSource looks up an authenticated broker adapter by name
type AdapterSource interface {
	Get(name string) (broker.Adapter, error)
}

// Router executes a recorded signal on paper or through a broker adapter.
// It never persists; the caller records the returned trade.
type Router struct {
	adapters      AdapterSource
	defaultBroker string
	timeout       time.Duration
	logger        *logrus.Entry
}

// NewRouter creates a new execution router
func NewRouter(adapters AdapterSource, defaultBroker string, timeout time.Duration, logger *logrus.Entry) *Router {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Router{
		adapters:      adapters,
		defaultBroker: defaultBroker,
		timeout:       timeout,
		logger:        logger.WithField("component", "router"),
	}
}

// BrokerFor returns the broker a strategy executes against in live mode
func (r *Router) BrokerFor(strategy *models.Strategy) string {
	if strategy.Broker != "" {
		return strategy.Broker
	}
	return r.defaultBroker
}

// Execute runs the signal in the given mode. A live failure returns an
// *ExecutionError and no trade.
func (r *Router) Execute(ctx context.Context, mode string, signal *models.Signal, strategy *models.Strategy) (*models.Trade, error) {
	if signal.Quantity <= 0 || signal.Price <= 0 {
		name := broker.Paper
		if mode == models.ModeLive {
			name = r.BrokerFor(strategy)
		}
		return nil, &ExecutionError{
			Broker: name,
			Err: broker.NewBrokerError(name, "INVALID_ORDER",
				fmt.Sprintf("quantity %d and price %v must be positive", signal.Quantity, signal.Price), broker.ErrInvalidPrice),
		}
	}

	switch mode {
	case models.ModePaper:
		return r.executePaper(signal), nil
	case models.ModeLive:
		return r.executeLive(ctx, signal, strategy)
	default:
		return nil, validationErrorf("unknown trading mode %q", mode)
	}
}

// executePaper fills the whole quantity at the signal price
func (r *Router) executePaper(signal *models.Signal) *models.Trade {
	r.logger.WithFields(logrus.Fields{
		"signal_id": signal.ID,
		"symbol":    signal.Symbol,
		"side":      signal.SignalType,
		"quantity":  signal.Quantity,
		"price":     signal.Price,
	}).Info("paper trade executed")

	return &models.Trade{
		SignalID:    signal.ID,
		Broker:      broker.Paper,
		Symbol:      signal.Symbol,
		Side:        signal.SignalType,
		Quantity:    signal.Quantity,
		Price:       signal.Price,
		Status:      string(broker.OrderStatusFilled),
		TradingMode: models.ModePaper,
	}
}

func (r *Router) executeLive(ctx context.Context, signal *models.Signal, strategy *models.Strategy) (*models.Trade, error) {
	name := r.BrokerFor(strategy)
	if name == "" {
		return nil, &ExecutionError{
			Broker: name,
			Err:    broker.NewBrokerError(name, "NO_BROKER", "strategy has no broker and no default is configured", broker.ErrBrokerNotFound),
		}
	}

	adapter, err := r.adapters.Get(name)
	if err != nil {
		return nil, &ExecutionError{
			Broker: name,
			Err:    broker.NewBrokerError(name, "NOT_CONFIGURED", "broker is not configured", err),
		}
	}

	req, err := buildOrderRequest(signal, strategy)
	if err != nil {
		return nil, &ExecutionError{Broker: name, Err: broker.NewBrokerError(name, "INVALID_ORDER", err.Error(), err)}
	}

	log := r.logger.WithFields(logrus.Fields{
		"broker":          name,
		"signal_id":       signal.ID,
		"symbol":          req.Symbol,
		"side":            req.Side,
		"quantity":        req.Quantity,
		"client_order_id": req.ClientOrderID,
	})

	result, err := r.placeOrder(ctx, adapter, req)
	if err != nil {
		brokerErr := broker.AsBrokerError(name, err)
		log.WithError(brokerErr).WithField("temporary", broker.IsTemporaryError(brokerErr)).Error("live order failed")
		return nil, &ExecutionError{Broker: name, Err: brokerErr}
	}

	status := result.Status
	if status == "" {
		status = broker.OrderStatusOpen
	}
	log.WithFields(logrus.Fields{"order_id": result.OrderID, "status": status}).Info("live order placed")

	return &models.Trade{
		SignalID:    signal.ID,
		Broker:      name,
		OrderID:     result.OrderID,
		Symbol:      signal.Symbol,
		Side:        signal.SignalType,
		Quantity:    signal.Quantity,
		Price:       signal.Price,
		Status:      string(status),
		TradingMode: models.ModeLive,
	}, nil
}

// placeOrder bounds the adapter call by the router timeout even when the
// adapter ignores its context
func (r *Router) placeOrder(ctx context.Context, adapter broker.Adapter, req *broker.OrderRequest) (*broker.OrderResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type placed struct {
		result *broker.OrderResult
		err    error
	}
	done := make(chan placed, 1)
	go func() {
		result, err := adapter.PlaceOrder(callCtx, req)
		done <- placed{result: result, err: err}
	}()

	select {
	case p := <-done:
		if p.err == nil && p.result == nil {
			return nil, fmt.Errorf("%w: empty order result", broker.ErrAPIError)
		}
		return p.result, p.err
	case <-callCtx.Done():
		return nil, callCtx.Err()
	}
}

func buildOrderRequest(signal *models.Signal, strategy *models.Strategy) (*broker.OrderRequest, error) {
	side, err := broker.ParseSide(signal.SignalType)
	if err != nil {
		return nil, err
	}
	orderType, err := broker.ParseOrderType(strategy.OrderType)
	if err != nil {
		return nil, err
	}

	req := &broker.OrderRequest{
		Symbol:        broker.NormalizeSymbol(signal.Symbol),
		Exchange:      strategy.Exchange,
		Side:          side,
		Type:          orderType,
		ProductType:   strategy.ProductType,
		Quantity:      signal.Quantity,
		Price:         signal.Price,
		StopLossPrice: signal.StopLossPrice,
		TargetPrice:   signal.TargetPrice,
		ClientOrderID: uuid.NewString(),
	}
	if err := broker.ValidateOrderRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}
