package models

import (
	"time"
)

// Position size types
const (
	SizeTypeQuantity = "quantity"
	SizeTypeAmount   = "amount"
)

// Strategy maps a symbol and signal source to an order template.
// Only IsActive changes after creation; rows are never deleted.
type Strategy struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name" gorm:"not null"`
	Exchange         string    `json:"exchange" gorm:"not null"`
	InstrumentType   string    `json:"instrument_type" gorm:"not null"`
	Symbol           string    `json:"symbol" gorm:"not null;index:idx_strategy_match"`
	SignalSource     string    `json:"signal_source" gorm:"not null;index:idx_strategy_match"`
	PositionSizeType string    `json:"position_size_type" gorm:"not null"`
	PositionSize     float64   `json:"position_size" gorm:"not null"`
	LotSize          int64     `json:"lot_size" gorm:"default:1"`
	OrderType        string    `json:"order_type" gorm:"not null"`
	ProductType      string    `json:"product_type" gorm:"not null"`
	Broker           string    `json:"broker,omitempty"`
	StopLoss         *float64  `json:"stop_loss,omitempty"`
	Target           *float64  `json:"target,omitempty"`
	TrailingStopLoss *float64  `json:"trailing_stop_loss,omitempty"`
	EntryCondition   *string   `json:"entry_condition,omitempty" gorm:"type:text"`
	ExitCondition    *string   `json:"exit_condition,omitempty" gorm:"type:text"`
	IsActive         bool      `json:"is_active" gorm:"not null;index:idx_strategy_match"`
	CreatedAt        time.Time `json:"created_at"`
}
