package services

import (
	"context"
	"time"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultListLimit is used when a list call passes a non-positive limit
const DefaultListLimit = 50

// Ledger is the durable record of signals and trades. Trades are only ever
// inserted; a signal row gets exactly one status write after insertion.
type Ledger struct {
	db     *gorm.DB
	logger *logrus.Entry
	now    func() time.Time
}

// NewLedger creates a new ledger
func NewLedger(db *gorm.DB, logger *logrus.Entry) *Ledger {
	return &Ledger{
		db:     db,
		logger: logger.WithField("component", "ledger"),
		now:    time.Now,
	}
}

// RecordSignal inserts a pending signal and returns its id
func (l *Ledger) RecordSignal(ctx context.Context, signal *models.Signal) (uint, error) {
	signal.ID = 0
	signal.Status = models.SignalPending
	if signal.Timestamp.IsZero() {
		signal.Timestamp = l.now()
	}
	signal.Timestamp = signal.Timestamp.UTC()

	if err := l.db.WithContext(ctx).Omit("Strategy").Create(signal).Error; err != nil {
		return 0, &PersistenceError{Op: "record_signal", Err: err}
	}

	l.logger.WithFields(logrus.Fields{
		"activity":  "signal_recorded",
		"signal_id": signal.ID,
		"symbol":    signal.Symbol,
		"side":      signal.SignalType,
		"quantity":  signal.Quantity,
		"price":     signal.Price,
	}).Info("trade activity")
	return signal.ID, nil
}

// RecordTrade appends a trade and returns its id
func (l *Ledger) RecordTrade(ctx context.Context, trade *models.Trade) (uint, error) {
	trade.ID = 0
	// stored in UTC so day bounds compare correctly on every driver
	if trade.Timestamp.IsZero() {
		trade.Timestamp = l.now()
	}
	trade.Timestamp = trade.Timestamp.UTC()

	if err := l.db.WithContext(ctx).Omit("Signal").Create(trade).Error; err != nil {
		return 0, &PersistenceError{Op: "record_trade", Err: err}
	}

	l.logger.WithFields(logrus.Fields{
		"activity":     "trade_recorded",
		"trade_id":     trade.ID,
		"signal_id":    trade.SignalID,
		"broker":       trade.Broker,
		"order_id":     trade.OrderID,
		"status":       trade.Status,
		"trading_mode": trade.TradingMode,
	}).Info("trade activity")
	return trade.ID, nil
}

// MarkSignal moves a pending signal to filled or rejected. Any other
// transition, or a signal that is no longer pending, yields ErrInvalidTransition.
func (l *Ledger) MarkSignal(ctx context.Context, id uint, status string) error {
	if status != models.SignalFilled && status != models.SignalRejected {
		return ErrInvalidTransition
	}

	result := l.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("id = ? AND status = ?", id, models.SignalPending).
		Update("status", status)
	if result.Error != nil {
		return &PersistenceError{Op: "mark_signal", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// ListRecentSignals returns the newest signals first
func (l *Ledger) ListRecentSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	signals := make([]models.Signal, 0)
	if err := l.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&signals).Error; err != nil {
		return nil, &PersistenceError{Op: "list_signals", Err: err}
	}
	return signals, nil
}

// ListRecentTrades returns the newest trades first
func (l *Ledger) ListRecentTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	trades := make([]models.Trade, 0)
	if err := l.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&trades).Error; err != nil {
		return nil, &PersistenceError{Op: "list_trades", Err: err}
	}
	return trades, nil
}

// DailyRealizedPnL sums live filled trades on the calendar day of day, in
// day's location: sells add price*quantity, buys subtract it.
func (l *Ledger) DailyRealizedPnL(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var trades []models.Trade
	err := l.db.WithContext(ctx).
		Select("side", "quantity", "price").
		Where("trading_mode = ? AND status = ? AND timestamp >= ? AND timestamp < ?",
			models.ModeLive, string(broker.OrderStatusFilled), start.UTC(), end.UTC()).
		Find(&trades).Error
	if err != nil {
		return decimal.Zero, &PersistenceError{Op: "daily_pnl", Err: err}
	}

	pnl := decimal.Zero
	for _, trade := range trades {
		pnl = pnl.Add(TradeImpact(trade.Side, trade.Quantity, trade.Price))
	}
	return pnl, nil
}

// TradeImpact is the realised P&L contribution of one fill
func TradeImpact(side string, quantity int64, price float64) decimal.Decimal {
	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(quantity))
	if side == models.SideSell {
		return notional
	}
	return notional.Neg()
}
