// Package rest implements broker.Adapter for the catalogued REST brokerages.
// All of them share one normalised request shape; the per-broker differences
// the relay cares about (base URL, order type codes, product types) come from
// broker.Info.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// Client is a REST broker adapter
type Client struct {
	info   broker.Info
	client *resty.Client

	mu          sync.RWMutex
	credentials *broker.Credentials
}

type placeOrderPayload struct {
	Symbol        string   `json:"symbol"`
	Exchange      string   `json:"exchange,omitempty"`
	Side          string   `json:"transaction_type"`
	OrderType     string   `json:"order_type"`
	ProductType   string   `json:"product_type"`
	Quantity      string   `json:"quantity"`
	Price         string   `json:"price"`
	StopLossPrice *float64 `json:"stop_loss_price,omitempty"`
	TargetPrice   *float64 `json:"target_price,omitempty"`
	ClientOrderID string   `json:"client_order_id,omitempty"`
	Duration      string   `json:"duration"`
}

type placeOrderResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		OrderID     string `json:"order_id"`
		OrderStatus string `json:"order_status"`
	} `json:"data"`
}

type positionsResponse struct {
	Status string `json:"status"`
	Data   []struct {
		Symbol       string  `json:"symbol"`
		Exchange     string  `json:"exchange"`
		ProductType  string  `json:"product_type"`
		Quantity     int64   `json:"quantity"`
		AveragePrice float64 `json:"average_price"`
		LastPrice    float64 `json:"last_price"`
		PnL          float64 `json:"pnl"`
	} `json:"data"`
}

type errorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// NewClient creates an unauthenticated adapter for info. A zero timeout uses
// the default.
func NewClient(info broker.Info, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		info: info,
		client: resty.New().
			SetBaseURL(strings.TrimRight(info.BaseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

// Register registers every catalogued broker. overrides replaces the base URL
// of individual brokers, e.g. to point at a sandbox.
func Register(overrides map[string]string, timeout time.Duration) {
	for name, info := range broker.Catalog {
		if url, ok := overrides[name]; ok && url != "" {
			info.BaseURL = url
		}
		info := info
		broker.Register(name, func() broker.Adapter {
			return NewClient(info, timeout)
		})
	}
}

// Name returns the broker name
func (c *Client) Name() string {
	return c.info.Name
}

// Info returns the broker description the client was built from
func (c *Client) Info() broker.Info {
	return c.info
}

// Authenticate stores credentials for subsequent calls
func (c *Client) Authenticate(ctx context.Context, credentials *broker.Credentials) error {
	if credentials == nil {
		return broker.ErrInvalidCredentials
	}
	if credentials.APIKey == "" || credentials.APISecret == "" {
		return broker.NewBrokerError(c.info.Name, "INVALID_CREDENTIALS", "API key and secret are required", broker.ErrInvalidCredentials)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.credentials.Equal(credentials) {
		return nil
	}
	creds := *credentials
	c.credentials = &creds
	return nil
}

// PlaceOrder places a new order
func (c *Client) PlaceOrder(ctx context.Context, req *broker.OrderRequest) (*broker.OrderResult, error) {
	if err := broker.ValidateOrderRequest(req); err != nil {
		return nil, broker.NewBrokerError(c.info.Name, "INVALID_ORDER", err.Error(), err)
	}

	code, ok := c.info.OrderTypes[req.Type]
	if !ok {
		return nil, broker.NewBrokerError(c.info.Name, "INVALID_ORDER", fmt.Sprintf("order type %s not supported", req.Type), broker.ErrInvalidOrderType)
	}
	if req.ProductType != "" && !c.info.SupportsProductType(req.ProductType) {
		return nil, broker.NewBrokerError(c.info.Name, "INVALID_ORDER", fmt.Sprintf("product type %s not supported", req.ProductType), broker.ErrInvalidProductType)
	}

	r, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	payload := placeOrderPayload{
		Symbol:        broker.NormalizeSymbol(req.Symbol),
		Exchange:      req.Exchange,
		Side:          string(req.Side),
		OrderType:     code,
		ProductType:   req.ProductType,
		Quantity:      broker.FormatQuantity(req.Quantity),
		Price:         broker.FormatPrice(req.Price, 2),
		StopLossPrice: req.StopLossPrice,
		TargetPrice:   req.TargetPrice,
		ClientOrderID: req.ClientOrderID,
		Duration:      "DAY",
	}

	var result placeOrderResponse
	var apiErr errorResponse
	resp, err := r.SetBody(payload).SetResult(&result).SetError(&apiErr).Post("/orders")
	if err != nil {
		return nil, c.transportError(err)
	}
	if resp.IsError() {
		return nil, c.statusError(resp, &apiErr)
	}
	if result.Data.OrderID == "" {
		return nil, broker.NewBrokerError(c.info.Name, "ORDER_FAILED", "response carried no order id", broker.ErrAPIError)
	}

	return &broker.OrderResult{
		OrderID: result.Data.OrderID,
		Status:  normalizeStatus(result.Data.OrderStatus),
	}, nil
}

// GetPositions retrieves all open positions
func (c *Client) GetPositions(ctx context.Context) ([]broker.Position, error) {
	r, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var result positionsResponse
	var apiErr errorResponse
	resp, err := r.SetResult(&result).SetError(&apiErr).Get("/positions")
	if err != nil {
		return nil, c.transportError(err)
	}
	if resp.IsError() {
		return nil, c.statusError(resp, &apiErr)
	}

	now := time.Now()
	positions := make([]broker.Position, 0, len(result.Data))
	for _, p := range result.Data {
		positions = append(positions, broker.Position{
			Symbol:       p.Symbol,
			Exchange:     p.Exchange,
			ProductType:  p.ProductType,
			Quantity:     p.Quantity,
			AveragePrice: p.AveragePrice,
			LastPrice:    p.LastPrice,
			PnL:          p.PnL,
			UpdatedAt:    now,
		})
	}
	return positions, nil
}

// CancelOrder cancels an order
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return broker.NewBrokerError(c.info.Name, "INVALID_ORDER_ID", "order id is required", broker.ErrOrderNotFound)
	}

	r, err := c.request(ctx)
	if err != nil {
		return err
	}

	var apiErr errorResponse
	resp, err := r.SetError(&apiErr).SetPathParam("orderID", orderID).Delete("/orders/{orderID}")
	if err != nil {
		return c.transportError(err)
	}
	if resp.IsError() {
		return c.statusError(resp, &apiErr)
	}
	return nil
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	c.mu.RLock()
	creds := c.credentials
	c.mu.RUnlock()

	if creds == nil {
		return nil, broker.NewBrokerError(c.info.Name, "NOT_AUTHENTICATED", "authenticate before calling the broker", broker.ErrNotAuthenticated)
	}

	r := c.client.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", creds.APIKey)
	if creds.AccessToken != "" {
		r.SetAuthToken(creds.AccessToken)
	}
	return r, nil
}

func (c *Client) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return broker.NewBrokerError(c.info.Name, "TIMEOUT", "broker call timed out", errors.Join(broker.ErrTimeout, err))
	}
	return broker.NewBrokerError(c.info.Name, "NETWORK_ERROR", "broker request failed", errors.Join(broker.ErrNetworkError, err))
}

func (c *Client) statusError(resp *resty.Response, apiErr *errorResponse) error {
	message := apiErr.Message
	if message == "" {
		message = fmt.Sprintf("broker returned status %d: %s", resp.StatusCode(), resp.String())
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return broker.NewBrokerError(c.info.Name, "INVALID_CREDENTIALS", message, broker.ErrInvalidCredentials)
	case resp.StatusCode() == http.StatusNotFound:
		return broker.NewBrokerError(c.info.Name, "NOT_FOUND", message, broker.ErrOrderNotFound)
	case resp.StatusCode() == http.StatusTooManyRequests:
		return broker.NewBrokerError(c.info.Name, "RATE_LIMIT", message, broker.ErrRateLimitExceeded)
	case resp.StatusCode() >= http.StatusInternalServerError:
		return broker.NewBrokerError(c.info.Name, "SERVER_ERROR", message, broker.ErrAPIError)
	default:
		return broker.NewBrokerError(c.info.Name, "ORDER_FAILED", message, broker.ErrAPIError)
	}
}

func normalizeStatus(status string) broker.OrderStatus {
	switch strings.ToLower(status) {
	case "complete", "completed", "filled", "traded", "executed":
		return broker.OrderStatusFilled
	case "rejected":
		return broker.OrderStatusRejected
	case "cancelled", "canceled":
		return broker.OrderStatusCancelled
	default:
		return broker.OrderStatusOpen
	}
}
