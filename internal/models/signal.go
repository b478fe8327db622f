package models

import (
	"time"
)

// Signal sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Signal statuses
const (
	SignalPending  = "pending"
	SignalFilled   = "filled"
	SignalRejected = "rejected"
)

// Signal is one (strategy, webhook event) match. The status is written once
// after creation, from pending to filled or rejected.
type Signal struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	StrategyID    *uint      `json:"strategy_id,omitempty" gorm:"index"`
	SignalType    string     `json:"signal_type" gorm:"not null"` // BUY, SELL
	Symbol        string     `json:"symbol" gorm:"not null"`
	Price         float64    `json:"price" gorm:"not null"`
	Quantity      int64      `json:"quantity" gorm:"not null"`
	Status        string     `json:"status" gorm:"not null;default:'pending'"`
	Source        string     `json:"source"`
	SourceTime    *time.Time `json:"source_time,omitempty"`
	StopLossPrice *float64   `json:"stop_loss_price,omitempty"`
	TargetPrice   *float64   `json:"target_price,omitempty"`
	Timestamp     time.Time  `json:"timestamp" gorm:"not null;index"`

	Strategy *Strategy `json:"-" gorm:"foreignKey:StrategyID"`
}
