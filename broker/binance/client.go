package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

// UseTestnet routes new clients to the Binance futures testnet
var UseTestnet = true

// Client represents a Binance futures broker adapter
type Client struct {
	name        string
	mu          sync.RWMutex
	client      *futures.Client
	credentials *broker.Credentials
}

// NewClient creates a new Binance futures adapter
func NewClient() broker.Adapter {
	return &Client{
		name: "binance",
	}
}

// Name returns the broker name
func (c *Client) Name() string {
	return c.name
}

// Authenticate sets up the client with credentials
func (c *Client) Authenticate(ctx context.Context, credentials *broker.Credentials) error {
	if credentials == nil {
		return broker.ErrInvalidCredentials
	}

	if credentials.APIKey == "" || credentials.APISecret == "" {
		return broker.NewBrokerError(c.name, "INVALID_CREDENTIALS", "API key and secret key are required", broker.ErrInvalidCredentials)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.credentials.Equal(credentials) {
		return nil
	}

	creds := *credentials
	c.credentials = &creds
	futures.UseTestnet = UseTestnet
	c.client = binance.NewFuturesClient(creds.APIKey, creds.APISecret)
	return nil
}

func (c *Client) futuresClient() (*futures.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.client == nil {
		return nil, broker.NewBrokerError(c.name, "NOT_AUTHENTICATED", "authenticate before calling the broker", broker.ErrNotAuthenticated)
	}
	return c.client, nil
}

// PlaceOrder places a new order. The returned order id is "SYMBOL:ID" because
// Binance needs the symbol to cancel.
func (c *Client) PlaceOrder(ctx context.Context, req *broker.OrderRequest) (*broker.OrderResult, error) {
	if err := broker.ValidateOrderRequest(req); err != nil {
		return nil, broker.NewBrokerError(c.name, "INVALID_ORDER", err.Error(), err)
	}

	orderType, err := convertToBinanceOrderType(req.Type)
	if err != nil {
		return nil, broker.NewBrokerError(c.name, "INVALID_ORDER", err.Error(), err)
	}

	client, err := c.futuresClient()
	if err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(req.Symbol)
	service := client.NewCreateOrderService().
		Symbol(symbol).
		Side(convertToBinanceSide(req.Side)).
		Type(orderType).
		Quantity(broker.FormatQuantity(req.Quantity))

	if req.Type == broker.OrderTypeLimit {
		service = service.Price(broker.FormatPrice(req.Price, 8)).
			TimeInForce(futures.TimeInForceTypeGTC)
	}
	if req.ClientOrderID != "" {
		service = service.NewClientOrderID(req.ClientOrderID)
	}

	order, err := service.Do(ctx)
	if err != nil {
		return nil, broker.AsBrokerError(c.name, broker.NewBrokerError(c.name, "ORDER_FAILED", "Failed to place order", err))
	}

	return &broker.OrderResult{
		OrderID: fmt.Sprintf("%s:%d", order.Symbol, order.OrderID),
		Status:  convertBinanceOrderStatus(order.Status),
	}, nil
}

// GetPositions retrieves all non-zero positions
func (c *Client) GetPositions(ctx context.Context) ([]broker.Position, error) {
	client, err := c.futuresClient()
	if err != nil {
		return nil, err
	}

	positions, err := client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, broker.AsBrokerError(c.name, broker.NewBrokerError(c.name, "POSITIONS_FAILED", "Failed to get positions", err))
	}

	var result []broker.Position
	for _, pos := range positions {
		amount := parseFloatOrZero(pos.PositionAmt)
		if amount == 0 {
			continue
		}
		result = append(result, broker.Position{
			Symbol:       pos.Symbol,
			Exchange:     c.name,
			Quantity:     int64(amount),
			AveragePrice: parseFloatOrZero(pos.EntryPrice),
			LastPrice:    parseFloatOrZero(pos.MarkPrice),
			PnL:          parseFloatOrZero(pos.UnRealizedProfit),
			UpdatedAt:    time.Now(),
		})
	}

	return result, nil
}

// CancelOrder cancels an order placed through PlaceOrder
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	symbol, id, err := splitOrderID(orderID)
	if err != nil {
		return broker.NewBrokerError(c.name, "INVALID_ORDER_ID", "Invalid order ID", err)
	}

	client, err := c.futuresClient()
	if err != nil {
		return err
	}

	_, err = client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(id).
		Do(ctx)
	if err != nil {
		return broker.AsBrokerError(c.name, broker.NewBrokerError(c.name, "CANCEL_FAILED", "Failed to cancel order", err))
	}

	return nil
}

// Helper functions

func splitOrderID(orderID string) (string, int64, error) {
	symbol, raw, ok := strings.Cut(orderID, ":")
	if !ok || symbol == "" {
		return "", 0, fmt.Errorf("%w: %q", broker.ErrOrderNotFound, orderID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, err
	}
	return symbol, id, nil
}

func parseFloatOrZero(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func convertToBinanceSide(side broker.OrderSide) futures.SideType {
	switch side {
	case broker.OrderSideSell:
		return futures.SideTypeSell
	default:
		return futures.SideTypeBuy
	}
}

func convertToBinanceOrderType(orderType broker.OrderType) (futures.OrderType, error) {
	switch orderType {
	case broker.OrderTypeMarket:
		return futures.OrderTypeMarket, nil
	case broker.OrderTypeLimit:
		return futures.OrderTypeLimit, nil
	default:
		return "", fmt.Errorf("%w: %s", broker.ErrInvalidOrderType, orderType)
	}
}

func convertBinanceOrderStatus(status futures.OrderStatusType) broker.OrderStatus {
	switch status {
	case futures.OrderStatusTypeFilled:
		return broker.OrderStatusFilled
	case futures.OrderStatusTypeCanceled, futures.OrderStatusTypeExpired:
		return broker.OrderStatusCancelled
	case futures.OrderStatusTypeRejected:
		return broker.OrderStatusRejected
	default:
		return broker.OrderStatusOpen
	}
}

// Register the Binance broker
func init() {
	broker.Register("binance", NewClient)
}
