package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Cyvadra/signal-relay/internal/config"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PnLSource reports realised P&L for a calendar day
type PnLSource interface {
	DailyRealizedPnL(ctx context.Context, day time.Time) (decimal.Decimal, error)
}

type tradingHours struct {
	start, end int // minutes since midnight, inclusive
}

// exchangeHours are the regular sessions; unknown exchanges use the NSE session
var exchangeHours = map[string]tradingHours{
	"NSE": {start: 9*60 + 15, end: 15*60 + 30},
	"BSE": {start: 9*60 + 15, end: 15*60 + 30},
	"NFO": {start: 9*60 + 15, end: 15*60 + 30},
	"MCX": {start: 9 * 60, end: 23*60 + 30},
}

// ReserveRequest describes one strategy execution about to be routed
type ReserveRequest struct {
	Symbol   string
	Exchange string
	Side     string
	Quantity int64
	Price    float64
	Mode     string
}

// Reservation holds an accepted execution's share of the daily-loss budget
// until Release is called
type Reservation struct {
	id        uint64
	evaluator *RiskEvaluator
	once      sync.Once
}

// Release returns the reservation. It is safe to call more than once.
func (r *Reservation) Release() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		r.evaluator.release(r.id)
	})
}

// RiskEvaluator runs the pre-trade checks. Reserve serialises the checks with
// the bookkeeping of in-flight executions so concurrent callers cannot both
// spend the same remaining daily-loss budget.
type RiskEvaluator struct {
	cfg      config.RiskConfig
	pnl      PnLSource
	location *time.Location
	logger   *logrus.Entry
	now      func() time.Time

	mu         sync.Mutex
	nextID     uint64
	inFlight   map[uint64]decimal.Decimal
	orderTimes []time.Time
}

// NewRiskEvaluator creates a risk evaluator over the given P&L source
func NewRiskEvaluator(cfg config.RiskConfig, pnl PnLSource, logger *logrus.Entry) *RiskEvaluator {
	location := time.Local
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			location = loc
		} else {
			logger.WithError(err).WithField("timezone", cfg.Timezone).Warn("unknown timezone, using local time")
		}
	}

	return &RiskEvaluator{
		cfg:      cfg,
		pnl:      pnl,
		location: location,
		logger:   logger.WithField("component", "risk"),
		now:      time.Now,
		inFlight: make(map[uint64]decimal.Decimal),
	}
}

// PositionSizeOK fails when quantity*price exceeds maxPositionValue
func PositionSizeOK(quantity int64, price, maxPositionValue float64) bool {
	value := decimal.NewFromInt(quantity).Mul(decimal.NewFromFloat(price))
	return !value.GreaterThan(decimal.NewFromFloat(maxPositionValue))
}

// SymbolAllowed fails for a blocked symbol, or for a symbol missing from a
// non-empty allow list
func SymbolAllowed(symbol string, allowList, blockList []string) bool {
	for _, blocked := range blockList {
		if blocked == symbol {
			return false
		}
	}
	if len(allowList) == 0 {
		return true
	}
	for _, allowed := range allowList {
		if allowed == symbol {
			return true
		}
	}
	return false
}

// MarketOpen reports whether the exchange session is open at t, weekdays only
func MarketOpen(exchange string, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	hours, ok := exchangeHours[strings.ToUpper(exchange)]
	if !ok {
		hours = exchangeHours["NSE"]
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= hours.start && minute <= hours.end
}

// PositionSizeOK checks against the configured maximum position value
func (r *RiskEvaluator) PositionSizeOK(quantity int64, price float64) bool {
	return PositionSizeOK(quantity, price, r.cfg.MaxPositionSize)
}

// SymbolAllowed checks against the configured allow and block lists
func (r *RiskEvaluator) SymbolAllowed(symbol string) bool {
	return SymbolAllowed(symbol, r.cfg.AllowedSymbols, r.cfg.BlockedSymbols)
}

// DailyLossOK passes while today's realised live P&L is above -maxDailyLoss
func (r *RiskEvaluator) DailyLossOK(ctx context.Context, maxDailyLoss float64) (bool, error) {
	pnl, err := r.pnl.DailyRealizedPnL(ctx, r.now().In(r.location))
	if err != nil {
		return false, err
	}
	return pnl.GreaterThan(decimal.NewFromFloat(maxDailyLoss).Neg()), nil
}

// Reserve atomically runs every check and, when all pass, registers the
// execution. The daily-loss check counts the ledger's realised P&L plus the
// adverse impact of live reservations not yet released. Unconfirmed sells
// never widen the budget.
func (r *RiskEvaluator) Reserve(ctx context.Context, req ReserveRequest) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().In(r.location)
	log := r.logger.WithFields(logrus.Fields{
		"symbol":   req.Symbol,
		"side":     req.Side,
		"quantity": req.Quantity,
		"price":    req.Price,
		"mode":     req.Mode,
	})

	if !r.SymbolAllowed(req.Symbol) {
		return nil, r.reject(log, CheckSymbolAllowed, fmt.Sprintf("symbol %s is not tradable", req.Symbol))
	}

	if !r.PositionSizeOK(req.Quantity, req.Price) {
		return nil, r.reject(log, CheckPositionSize, fmt.Sprintf("position value %.2f exceeds %.2f",
			float64(req.Quantity)*req.Price, r.cfg.MaxPositionSize))
	}

	if r.cfg.EnforceMarketHours && !MarketOpen(req.Exchange, now) {
		return nil, r.reject(log, CheckMarketHours, fmt.Sprintf("%s is closed", req.Exchange))
	}

	if r.cfg.MaxOrdersPerMinute > 0 {
		r.pruneOrderTimes(now)
		if len(r.orderTimes) >= r.cfg.MaxOrdersPerMinute {
			return nil, r.reject(log, CheckOrderRate, fmt.Sprintf("more than %d orders in the last minute", r.cfg.MaxOrdersPerMinute))
		}
	}

	realised, err := r.pnl.DailyRealizedPnL(ctx, now)
	if err != nil {
		return nil, err
	}
	exposure := realised
	for _, impact := range r.inFlight {
		exposure = exposure.Add(impact)
	}
	limit := decimal.NewFromFloat(r.cfg.MaxDailyLoss).Neg()
	if !exposure.GreaterThan(limit) {
		return nil, r.reject(log, CheckDailyLoss, fmt.Sprintf("daily pnl %s is at or below %s", exposure.StringFixed(2), limit.StringFixed(2)))
	}

	r.nextID++
	reservation := &Reservation{id: r.nextID, evaluator: r}
	if req.Mode == models.ModeLive {
		r.inFlight[reservation.id] = decimal.Min(TradeImpact(req.Side, req.Quantity, req.Price), decimal.Zero)
	}
	if r.cfg.MaxOrdersPerMinute > 0 {
		r.orderTimes = append(r.orderTimes, now)
	}

	log.WithField("reservation", reservation.id).Debug("risk checks passed")
	return reservation, nil
}

// Outstanding returns the number of live reservations not yet released
func (r *RiskEvaluator) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}

func (r *RiskEvaluator) release(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, id)
}

func (r *RiskEvaluator) pruneOrderTimes(now time.Time) {
	cutoff := now.Add(-time.Minute)
	kept := r.orderTimes[:0]
	for _, t := range r.orderTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.orderTimes = kept
}

func (r *RiskEvaluator) reject(log *logrus.Entry, check, detail string) error {
	log.WithField("check", check).Warn("risk check rejected execution")
	return &RiskRejected{Check: check, Detail: detail}
}
