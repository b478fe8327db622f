package broker

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var exchangeSuffix = regexp.MustCompile(`[-_](EQ|INDEX)$`)

// NormalizeSymbol upper-cases a symbol and strips exchange series suffixes
// such as "-EQ" or "_INDEX"
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return exchangeSuffix.ReplaceAllString(symbol, "")
}

// ParseSide converts a free-form side string to an OrderSide
func ParseSide(side string) (OrderSide, error) {
	switch OrderSide(strings.ToUpper(side)) {
	case OrderSideBuy:
		return OrderSideBuy, nil
	case OrderSideSell:
		return OrderSideSell, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrderSide, side)
	}
}

// ParseOrderType converts a free-form order type string to an OrderType
func ParseOrderType(orderType string) (OrderType, error) {
	switch OrderType(strings.ToUpper(orderType)) {
	case OrderTypeMarket:
		return OrderTypeMarket, nil
	case OrderTypeLimit:
		return OrderTypeLimit, nil
	case OrderTypeStopLoss:
		return OrderTypeStopLoss, nil
	case OrderTypeStopLossMarket:
		return OrderTypeStopLossMarket, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrderType, orderType)
	}
}

// FormatQuantity formats a quantity for API requests
func FormatQuantity(quantity int64) string {
	return strconv.FormatInt(quantity, 10)
}

// FormatPrice formats a price for API requests
func FormatPrice(price float64, precision int) string {
	return strconv.FormatFloat(price, 'f', precision, 64)
}

// ValidateOrderRequest validates an order request
func ValidateOrderRequest(req *OrderRequest) error {
	if req == nil {
		return fmt.Errorf("order request is nil")
	}

	if req.Symbol == "" {
		return ErrInvalidSymbol
	}

	if req.Side != OrderSideBuy && req.Side != OrderSideSell {
		return ErrInvalidOrderSide
	}

	if _, err := ParseOrderType(string(req.Type)); err != nil {
		return err
	}

	if req.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidQuantity)
	}

	if math.IsNaN(req.Price) || math.IsInf(req.Price, 0) || req.Price < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, req.Price)
	}

	if req.Type != OrderTypeMarket && req.Price == 0 {
		return fmt.Errorf("%w: price required for %s orders", ErrInvalidPrice, req.Type)
	}

	return nil
}
