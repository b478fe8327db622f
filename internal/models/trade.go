package models

import (
	"time"
)

// Trading modes
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Trade is an append-only record of one executed signal
type Trade struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SignalID    uint      `json:"signal_id" gorm:"not null;index"`
	Broker      string    `json:"broker" gorm:"not null"` // broker name or "paper"
	OrderID     string    `json:"order_id,omitempty"`
	Symbol      string    `json:"symbol" gorm:"not null"`
	Side        string    `json:"side" gorm:"not null"`
	Quantity    int64     `json:"quantity" gorm:"not null"`
	Price       float64   `json:"price" gorm:"not null"`
	Status      string    `json:"status" gorm:"not null"`
	TradingMode string    `json:"trading_mode" gorm:"not null;index:idx_trade_pnl"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null;index:idx_trade_pnl"`

	Signal *Signal `json:"-" gorm:"foreignKey:SignalID"`
}
