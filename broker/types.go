package broker

import (
	"time"
)

// Paper is the pseudo broker identifier used for simulated fills
const Paper = "paper"

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of an order
type OrderType string

const (
	OrderTypeMarket         OrderType = "MARKET"
	OrderTypeLimit          OrderType = "LIMIT"
	OrderTypeStopLoss       OrderType = "SL"
	OrderTypeStopLossMarket OrderType = "SL-M"
)

// OrderStatus represents the status reported by a broker
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Credentials represents the API credentials for a broker
type Credentials struct {
	APIKey      string `json:"api_key"`
	APISecret   string `json:"api_secret"`
	AccessToken string `json:"access_token,omitempty"`
}

// Equal reports whether two credential sets are identical
func (c *Credentials) Equal(other *Credentials) bool {
	if c == nil || other == nil {
		return c == other
	}
	return *c == *other
}

// OrderRequest represents a request to place an order
type OrderRequest struct {
	Symbol        string    `json:"symbol"`
	Exchange      string    `json:"exchange,omitempty"`
	Side          OrderSide `json:"side"`
	Type          OrderType `json:"order_type"`
	ProductType   string    `json:"product_type"`
	Quantity      int64     `json:"quantity"`
	Price         float64   `json:"price"`
	StopLossPrice *float64  `json:"stop_loss_price,omitempty"`
	TargetPrice   *float64  `json:"target_price,omitempty"`
	ClientOrderID string    `json:"client_order_id,omitempty"`
}

// OrderResult is what a broker returns for an accepted order
type OrderResult struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
}

// Position represents a position held at a broker
type Position struct {
	Symbol       string    `json:"symbol"`
	Exchange     string    `json:"exchange,omitempty"`
	ProductType  string    `json:"product_type,omitempty"`
	Quantity     int64     `json:"quantity"`
	AveragePrice float64   `json:"average_price"`
	LastPrice    float64   `json:"last_price"`
	PnL          float64   `json:"pnl"`
	UpdatedAt    time.Time `json:"updated_at"`
}
