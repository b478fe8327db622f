package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CreateStrategyRequest is the payload for creating a strategy
type CreateStrategyRequest struct {
	Name             string   `json:"name"`
	Exchange         string   `json:"exchange"`
	InstrumentType   string   `json:"instrument_type"`
	Symbol           string   `json:"symbol"`
	SignalSource     string   `json:"signal_source"`
	PositionSizeType string   `json:"position_size_type"`
	PositionSize     float64  `json:"position_size"`
	OrderType        string   `json:"order_type"`
	ProductType      string   `json:"product_type"`
	LotSize          int64    `json:"lot_size,omitempty"`
	Broker           string   `json:"broker,omitempty"`
	StopLoss         *float64 `json:"stop_loss,omitempty"`
	Target           *float64 `json:"target,omitempty"`
	TrailingStopLoss *float64 `json:"trailing_stop_loss,omitempty"`
	EntryCondition   *string  `json:"entry_condition,omitempty"`
	ExitCondition    *string  `json:"exit_condition,omitempty"`
}

// Validate checks the required fields of the request
func (r *CreateStrategyRequest) Validate() error {
	required := []struct{ name, value string }{
		{"name", r.Name},
		{"exchange", r.Exchange},
		{"instrument_type", r.InstrumentType},
		{"symbol", r.Symbol},
		{"signal_source", r.SignalSource},
		{"order_type", r.OrderType},
		{"product_type", r.ProductType},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return validationErrorf("missing required field %q", field.name)
		}
	}

	if r.PositionSizeType != models.SizeTypeQuantity && r.PositionSizeType != models.SizeTypeAmount {
		return validationErrorf("position_size_type must be quantity or amount")
	}
	if r.PositionSize <= 0 {
		return validationErrorf("position_size must be positive")
	}
	if !IsKnownSource(r.SignalSource) {
		return validationErrorf("unknown signal_source %q", r.SignalSource)
	}
	if _, err := broker.ParseOrderType(r.OrderType); err != nil {
		return validationErrorf("%v", err)
	}
	if r.LotSize < 0 {
		return validationErrorf("lot_size must not be negative")
	}
	if r.SignalSource == SourceChartink && !chartinkSymbol.MatchString(strategySymbol(r.SignalSource, r.Symbol)) {
		return validationErrorf("symbol %q can never match a chartink signal", r.Symbol)
	}
	return nil
}

// strategySymbol is the symbol as stored. Chartink only sends upper case
// symbols, so chartink strategies are upper-cased to match.
func strategySymbol(source, symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if source == SourceChartink {
		symbol = strings.ToUpper(symbol)
	}
	return symbol
}

// StrategyService stores strategy definitions
type StrategyService struct {
	db     *gorm.DB
	logger *logrus.Entry
}

// NewStrategyService creates a new strategy service
func NewStrategyService(db *gorm.DB, logger *logrus.Entry) *StrategyService {
	return &StrategyService{
		db:     db,
		logger: logger.WithField("component", "strategy_service"),
	}
}

// Create validates and stores a new active strategy
func (s *StrategyService) Create(ctx context.Context, req *CreateStrategyRequest) (*models.Strategy, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lotSize := req.LotSize
	if lotSize == 0 {
		lotSize = 1
	}

	strategy := &models.Strategy{
		Name:             req.Name,
		Exchange:         strings.ToUpper(req.Exchange),
		InstrumentType:   req.InstrumentType,
		Symbol:           strategySymbol(req.SignalSource, req.Symbol),
		SignalSource:     req.SignalSource,
		PositionSizeType: req.PositionSizeType,
		PositionSize:     req.PositionSize,
		LotSize:          lotSize,
		OrderType:        strings.ToUpper(req.OrderType),
		ProductType:      strings.ToUpper(req.ProductType),
		Broker:           req.Broker,
		StopLoss:         req.StopLoss,
		Target:           req.Target,
		TrailingStopLoss: req.TrailingStopLoss,
		EntryCondition:   req.EntryCondition,
		ExitCondition:    req.ExitCondition,
		IsActive:         true,
	}

	if err := s.db.WithContext(ctx).Create(strategy).Error; err != nil {
		return nil, &PersistenceError{Op: "create_strategy", Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"strategy_id": strategy.ID,
		"symbol":      strategy.Symbol,
		"source":      strategy.SignalSource,
	}).Info("strategy created")
	return strategy, nil
}

// FindActive returns the active strategies for a symbol and source, oldest first.
// No match yields an empty slice.
func (s *StrategyService) FindActive(ctx context.Context, symbol, source string) ([]models.Strategy, error) {
	strategies := make([]models.Strategy, 0)
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND signal_source = ? AND is_active = ?", symbol, source, true).
		Order("id ASC").
		Find(&strategies).Error
	if err != nil {
		return nil, &PersistenceError{Op: "find_strategies", Err: err}
	}
	return strategies, nil
}

// SetActive toggles the active flag, the only mutation a strategy allows
func (s *StrategyService) SetActive(ctx context.Context, id uint, active bool) (*models.Strategy, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return nil, &PersistenceError{Op: "set_strategy_active", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return nil, ErrStrategyNotFound
	}

	s.logger.WithFields(logrus.Fields{"strategy_id": id, "active": active}).Info("strategy active flag changed")
	return s.Get(ctx, id)
}

// Get returns a strategy by id
func (s *StrategyService) Get(ctx context.Context, id uint) (*models.Strategy, error) {
	var strategy models.Strategy
	err := s.db.WithContext(ctx).First(&strategy, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStrategyNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get_strategy", Err: err}
	}
	return &strategy, nil
}

// List returns every strategy, active or not, ordered by id
func (s *StrategyService) List(ctx context.Context) ([]models.Strategy, error) {
	strategies := make([]models.Strategy, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&strategies).Error; err != nil {
		return nil, &PersistenceError{Op: "list_strategies", Err: err}
	}
	return strategies, nil
}
