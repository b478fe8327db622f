package services

import (
	"errors"
	"math"
	"testing"

	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeQuantity(t *testing.T) {
	tests := []struct {
		name     string
		sizeType string
		size     float64
		lotSize  int64
		price    float64
		want     int64
	}{
		{"amount floors the division", models.SizeTypeAmount, 10000, 1, 250, 40},
		{"amount with remainder", models.SizeTypeAmount, 10000, 1, 333, 30},
		{"amount exact decimal", models.SizeTypeAmount, 0.3, 1, 0.1, 3},
		{"amount rounds down to lot", models.SizeTypeAmount, 10000, 25, 90, 100},
		{"quantity is used verbatim", models.SizeTypeQuantity, 15, 1, 2450.5, 15},
		{"quantity truncates toward zero", models.SizeTypeQuantity, 10.9, 1, 100, 10},
		{"quantity ignores lot size", models.SizeTypeQuantity, 7, 50, 100, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := &models.Strategy{PositionSizeType: tt.sizeType, PositionSize: tt.size, LotSize: tt.lotSize}
			got, err := ComputeQuantity(strategy, tt.price)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeQuantityErrors(t *testing.T) {
	tests := []struct {
		name     string
		strategy *models.Strategy
		price    float64
	}{
		{"zero price", &models.Strategy{PositionSizeType: models.SizeTypeAmount, PositionSize: 10000}, 0},
		{"negative price", &models.Strategy{PositionSizeType: models.SizeTypeAmount, PositionSize: 10000}, -250},
		{"negative price with quantity sizing", &models.Strategy{PositionSizeType: models.SizeTypeQuantity, PositionSize: 10}, -1},
		{"nan price", &models.Strategy{PositionSizeType: models.SizeTypeAmount, PositionSize: 10000}, math.NaN()},
		{"amount below one share", &models.Strategy{PositionSizeType: models.SizeTypeAmount, PositionSize: 100}, 250},
		{"amount below one lot", &models.Strategy{PositionSizeType: models.SizeTypeAmount, PositionSize: 1000, LotSize: 50}, 100},
		{"fractional quantity", &models.Strategy{PositionSizeType: models.SizeTypeQuantity, PositionSize: 0.5}, 100},
		{"unknown size type", &models.Strategy{PositionSizeType: "percent", PositionSize: 10}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeQuantity(tt.strategy, tt.price)
			var sizingErr *SizingError
			assert.True(t, errors.As(err, &sizingErr), "expected SizingError, got %v", err)
		})
	}
}

func TestStopLossAndTargetPrices(t *testing.T) {
	assert.InDelta(t, 98.0, StopLossPrice(100, 2, models.SideBuy), 1e-9)
	assert.InDelta(t, 102.0, StopLossPrice(100, 2, models.SideSell), 1e-9)
	assert.InDelta(t, 105.0, TargetPrice(100, 5, models.SideBuy), 1e-9)
	assert.InDelta(t, 95.0, TargetPrice(100, 5, models.SideSell), 1e-9)
}
