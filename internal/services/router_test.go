package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSignal() *models.Signal {
	return &models.Signal{
		ID:         42,
		SignalType: models.SideBuy,
		Symbol:     "INFY-EQ",
		Price:      1500,
		Quantity:   10,
		Status:     models.SignalPending,
	}
}

func TestRouterPaperIsDeterministic(t *testing.T) {
	adapter := new(MockAdapter)
	router := NewRouter(adapterMap{"zerodha": adapter}, "zerodha", time.Second, testLogger())
	strategy := quantityStrategy("INFY-EQ", 10)

	first, err := router.Execute(context.Background(), models.ModePaper, testSignal(), strategy)
	require.NoError(t, err)
	second, err := router.Execute(context.Background(), models.ModePaper, testSignal(), strategy)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, broker.Paper, first.Broker)
	assert.Equal(t, "filled", first.Status)
	assert.Equal(t, models.ModePaper, first.TradingMode)
	assert.Equal(t, uint(42), first.SignalID)
	assert.Equal(t, int64(10), first.Quantity)
	assert.Empty(t, first.OrderID)

	// no external call on the paper path
	adapter.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestRouterLive(t *testing.T) {
	adapter := new(MockAdapter)
	adapter.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req *broker.OrderRequest) bool {
		return req.Symbol == "INFY" &&
			req.Side == broker.OrderSideBuy &&
			req.Type == broker.OrderTypeMarket &&
			req.ProductType == "MIS" &&
			req.Quantity == 10 &&
			req.ClientOrderID != ""
	})).Return(&broker.OrderResult{OrderID: "230915000123", Status: broker.OrderStatusOpen}, nil).Once()

	router := NewRouter(adapterMap{"zerodha": adapter}, "zerodha", time.Second, testLogger())
	trade, err := router.Execute(context.Background(), models.ModeLive, testSignal(), quantityStrategy("INFY-EQ", 10))
	require.NoError(t, err)

	assert.Equal(t, "zerodha", trade.Broker)
	assert.Equal(t, "230915000123", trade.OrderID)
	assert.Equal(t, "open", trade.Status)
	assert.Equal(t, models.ModeLive, trade.TradingMode)
	assert.Equal(t, "INFY-EQ", trade.Symbol)
	adapter.AssertExpectations(t)
}

func TestRouterLiveUsesStrategyBroker(t *testing.T) {
	fallback := new(MockAdapter)
	chosen := new(MockAdapter)
	chosen.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(&broker.OrderResult{OrderID: "1", Status: broker.OrderStatusFilled}, nil).Once()

	router := NewRouter(adapterMap{"zerodha": fallback, "upstox": chosen}, "zerodha", time.Second, testLogger())
	strategy := quantityStrategy("INFY", 10)
	strategy.Broker = "upstox"

	trade, err := router.Execute(context.Background(), models.ModeLive, testSignal(), strategy)
	require.NoError(t, err)
	assert.Equal(t, "upstox", trade.Broker)
	chosen.AssertExpectations(t)
	fallback.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestRouterLiveBrokerError(t *testing.T) {
	adapter := new(MockAdapter)
	adapter.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(nil, broker.NewBrokerError("zerodha", "ORDER_FAILED", "insufficient margin", broker.ErrOrderRejected)).Once()

	router := NewRouter(adapterMap{"zerodha": adapter}, "zerodha", time.Second, testLogger())
	trade, err := router.Execute(context.Background(), models.ModeLive, testSignal(), quantityStrategy("INFY", 10))
	assert.Nil(t, trade)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "zerodha", execErr.Broker)

	var brokerErr *broker.BrokerError
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, "ORDER_FAILED", brokerErr.Code)
	assert.ErrorIs(t, err, broker.ErrOrderRejected)
}

func TestRouterLiveTimeout(t *testing.T) {
	adapter := new(MockAdapter)
	// ignores its context; the router still gives up after the timeout
	adapter.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(&broker.OrderResult{OrderID: "late", Status: broker.OrderStatusFilled}, nil).
		After(500 * time.Millisecond)

	router := NewRouter(adapterMap{"zerodha": adapter}, "zerodha", 50*time.Millisecond, testLogger())

	started := time.Now()
	trade, err := router.Execute(context.Background(), models.ModeLive, testSignal(), quantityStrategy("INFY", 10))
	assert.Less(t, time.Since(started), 400*time.Millisecond)
	assert.Nil(t, trade)

	var brokerErr *broker.BrokerError
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, "TIMEOUT", brokerErr.Code)
	assert.ErrorIs(t, err, broker.ErrTimeout)
	assert.True(t, broker.IsTemporaryError(err))
}

func TestRouterLiveMissingBroker(t *testing.T) {
	router := NewRouter(adapterMap{}, "", time.Second, testLogger())

	_, err := router.Execute(context.Background(), models.ModeLive, testSignal(), quantityStrategy("INFY", 10))
	var brokerErr *broker.BrokerError
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, "NO_BROKER", brokerErr.Code)

	router = NewRouter(adapterMap{}, "zerodha", time.Second, testLogger())
	_, err = router.Execute(context.Background(), models.ModeLive, testSignal(), quantityStrategy("INFY", 10))
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, "NOT_CONFIGURED", brokerErr.Code)
	assert.ErrorIs(t, err, broker.ErrBrokerNotFound)
}

func TestRouterRejectsNonPositivePrice(t *testing.T) {
	adapter := new(MockAdapter)
	router := NewRouter(adapterMap{"zerodha": adapter}, "zerodha", time.Second, testLogger())

	signal := testSignal()
	signal.Price = -10

	for _, mode := range []string{models.ModePaper, models.ModeLive} {
		trade, err := router.Execute(context.Background(), mode, signal, quantityStrategy("INFY", 10))
		assert.Nil(t, trade)
		var execErr *ExecutionError
		assert.True(t, errors.As(err, &execErr))
	}
	adapter.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestRouterLiveLimitOrderCarriesBrackets(t *testing.T) {
	adapter := new(MockAdapter)
	adapter.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req *broker.OrderRequest) bool {
		return req.Type == broker.OrderTypeLimit &&
			req.Price == 1500 &&
			req.StopLossPrice != nil && *req.StopLossPrice == 1470 &&
			req.TargetPrice != nil && *req.TargetPrice == 1575
	})).Return(&broker.OrderResult{OrderID: "9", Status: broker.OrderStatusOpen}, nil).Once()

	router := NewRouter(adapterMap{"zerodha": adapter}, "zerodha", time.Second, testLogger())
	strategy := quantityStrategy("INFY", 10)
	strategy.OrderType = "LIMIT"

	signal := testSignal()
	signal.StopLossPrice = floatPtr(1470)
	signal.TargetPrice = floatPtr(1575)

	_, err := router.Execute(context.Background(), models.ModeLive, signal, strategy)
	require.NoError(t, err)
	adapter.AssertExpectations(t)
}
