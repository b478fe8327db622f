package services

import (
	"fmt"
	"math"

	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/shopspring/decimal"
)

// ComputeQuantity converts a strategy's sizing rule and the signal price into
// an order quantity. Amount sizing floors the division and rounds down to the
// strategy's lot size.
func ComputeQuantity(strategy *models.Strategy, price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, &SizingError{Reason: fmt.Sprintf("price must be positive, got %v", price)}
	}

	var quantity int64
	switch strategy.PositionSizeType {
	case models.SizeTypeQuantity:
		quantity = decimal.NewFromFloat(strategy.PositionSize).Truncate(0).IntPart()
	case models.SizeTypeAmount:
		quantity = decimal.NewFromFloat(strategy.PositionSize).
			Div(decimal.NewFromFloat(price)).
			Floor().
			IntPart()
		if strategy.LotSize > 1 {
			quantity -= quantity % strategy.LotSize
		}
	default:
		return 0, &SizingError{Reason: fmt.Sprintf("unknown position size type %q", strategy.PositionSizeType)}
	}

	if quantity <= 0 {
		return 0, &SizingError{Reason: fmt.Sprintf("computed quantity %d is not positive", quantity)}
	}
	return quantity, nil
}

// StopLossPrice returns the stop-loss trigger for an entry, pct percent away
// against the position
func StopLossPrice(entry, pct float64, side string) float64 {
	if side == models.SideSell {
		return entry * (1 + pct/100)
	}
	return entry * (1 - pct/100)
}

// TargetPrice returns the profit target for an entry, pct percent away in
// favour of the position
func TargetPrice(entry, pct float64, side string) float64 {
	if side == models.SideSell {
		return entry * (1 - pct/100)
	}
	return entry * (1 + pct/100)
}
