package services

import (
	"context"
	"errors"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/sirupsen/logrus"
)

// Strategy outcome statuses
const (
	OutcomeExecuted         = "executed"
	OutcomeRiskRejected     = "risk_rejected"
	OutcomeSizingError      = "sizing_error"
	OutcomeBrokerError      = "broker_error"
	OutcomePersistenceError = "persistence_error"
)

// StrategyOutcome is the result of running one matched strategy
type StrategyOutcome struct {
	StrategyID  uint   `json:"strategy_id"`
	Status      string `json:"status"`
	Mode        string `json:"mode"`
	Quantity    int64  `json:"quantity,omitempty"`
	SignalID    uint   `json:"signal_id,omitempty"`
	TradeID     uint   `json:"trade_id,omitempty"`
	TradeStatus string `json:"trade_status,omitempty"`
	Broker      string `json:"broker,omitempty"`
	Check       string `json:"check,omitempty"`
	Error       string `json:"error,omitempty"`
	Retryable   bool   `json:"retryable,omitempty"` // broker error a later retry may clear
}

// ProcessResult is the result of one webhook event
type ProcessResult struct {
	Signal   *ValidatedSignal  `json:"signal"`
	Outcomes []StrategyOutcome `json:"outcomes"`
}

// HasBrokerError reports whether any strategy failed at the broker
func (r *ProcessResult) HasBrokerError() bool {
	for _, outcome := range r.Outcomes {
		if outcome.Status == OutcomeBrokerError {
			return true
		}
	}
	return false
}

// StrategyFinder returns the active strategies matching a signal
type StrategyFinder interface {
	FindActive(ctx context.Context, symbol, source string) ([]models.Strategy, error)
}

// Pipeline runs an inbound signal through validation, matching, sizing,
// risk, the ledger and execution, synchronously
type Pipeline struct {
	strategies StrategyFinder
	risk       *RiskEvaluator
	ledger     *Ledger
	router     *Router
	mode       *ModeState
	notifier   *Notifier
	logger     *logrus.Entry
}

// NewPipeline creates a new pipeline. notifier may be nil.
func NewPipeline(strategies StrategyFinder, risk *RiskEvaluator, ledger *Ledger, router *Router, mode *ModeState, notifier *Notifier, logger *logrus.Entry) *Pipeline {
	return &Pipeline{
		strategies: strategies,
		risk:       risk,
		ledger:     ledger,
		router:     router,
		mode:       mode,
		notifier:   notifier,
		logger:     logger.WithField("component", "pipeline"),
	}
}

// Process handles one webhook payload. Sizing, risk and broker failures are
// reported per strategy in the result; a persistence failure stops processing
// and is returned alongside the partial result.
func (p *Pipeline) Process(ctx context.Context, source string, raw []byte) (*ProcessResult, error) {
	validated, err := Validate(source, raw)
	if err != nil {
		p.logger.WithError(err).WithField("source", source).Warn("signal rejected by validation")
		return nil, err
	}

	result := &ProcessResult{Signal: validated, Outcomes: make([]StrategyOutcome, 0)}

	strategies, err := p.strategies.FindActive(ctx, validated.Symbol, source)
	if err != nil {
		return result, err
	}

	log := p.logger.WithFields(logrus.Fields{
		"source": source,
		"symbol": validated.Symbol,
		"side":   validated.Side,
	})
	log.WithField("matches", len(strategies)).Info("signal received")

	for i := range strategies {
		outcome, err := p.execute(ctx, validated, &strategies[i])
		result.Outcomes = append(result.Outcomes, outcome)
		if err != nil {
			log.WithError(err).WithField("strategy_id", strategies[i].ID).Error("processing aborted")
			p.notifier.Error(err.Error())
			return result, err
		}
	}

	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, validated *ValidatedSignal, strategy *models.Strategy) (StrategyOutcome, error) {
	// read once; the same mode reaches the router and the trade
	mode := p.mode.Current()
	outcome := StrategyOutcome{StrategyID: strategy.ID, Mode: mode}
	if mode == models.ModeLive {
		outcome.Broker = p.router.BrokerFor(strategy)
	} else {
		outcome.Broker = broker.Paper
	}

	quantity, err := ComputeQuantity(strategy, validated.Price)
	if err != nil {
		outcome.Status = OutcomeSizingError
		outcome.Error = err.Error()
		return outcome, nil
	}
	outcome.Quantity = quantity

	reservation, err := p.risk.Reserve(ctx, ReserveRequest{
		Symbol:   validated.Symbol,
		Exchange: strategy.Exchange,
		Side:     validated.Side,
		Quantity: quantity,
		Price:    validated.Price,
		Mode:     mode,
	})
	if err != nil {
		var rejected *RiskRejected
		if errors.As(err, &rejected) {
			outcome.Status = OutcomeRiskRejected
			outcome.Check = rejected.Check
			outcome.Error = err.Error()
			return outcome, nil
		}
		return p.failed(outcome, err)
	}
	defer reservation.Release()

	strategyID := strategy.ID
	sourceTime := validated.SourceTime
	signal := &models.Signal{
		StrategyID: &strategyID,
		SignalType: validated.Side,
		Symbol:     validated.Symbol,
		Price:      validated.Price,
		Quantity:   quantity,
		Source:     validated.Source,
		SourceTime: &sourceTime,
		Timestamp:  validated.Timestamp,
	}
	if strategy.StopLoss != nil {
		stopLoss := StopLossPrice(validated.Price, *strategy.StopLoss, validated.Side)
		signal.StopLossPrice = &stopLoss
	}
	if strategy.Target != nil {
		target := TargetPrice(validated.Price, *strategy.Target, validated.Side)
		signal.TargetPrice = &target
	}

	signalID, err := p.ledger.RecordSignal(ctx, signal)
	if err != nil {
		return p.failed(outcome, err)
	}
	outcome.SignalID = signalID
	p.notifier.SignalRecorded(signal)

	trade, err := p.router.Execute(ctx, mode, signal, strategy)
	if err != nil {
		// the signal stays pending
		outcome.Status = OutcomeBrokerError
		outcome.Error = err.Error()
		outcome.Retryable = broker.IsTemporaryError(err)
		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			outcome.Broker = execErr.Broker
		}
		p.notifier.Error(err.Error())
		return outcome, nil
	}

	tradeID, err := p.ledger.RecordTrade(ctx, trade)
	if err != nil {
		return p.failed(outcome, err)
	}
	// the ledger now counts the trade; holding the reservation would count it twice
	reservation.Release()
	outcome.TradeID = tradeID
	outcome.TradeStatus = trade.Status
	p.notifier.TradeRecorded(trade)

	switch broker.OrderStatus(trade.Status) {
	case broker.OrderStatusFilled:
		err = p.ledger.MarkSignal(ctx, signalID, models.SignalFilled)
	case broker.OrderStatusRejected, broker.OrderStatusCancelled:
		err = p.ledger.MarkSignal(ctx, signalID, models.SignalRejected)
	}
	if err != nil {
		return p.failed(outcome, err)
	}

	outcome.Status = OutcomeExecuted
	return outcome, nil
}

func (p *Pipeline) failed(outcome StrategyOutcome, err error) (StrategyOutcome, error) {
	var persistErr *PersistenceError
	if !errors.As(err, &persistErr) {
		err = &PersistenceError{Op: "process_signal", Err: err}
	}
	outcome.Status = OutcomePersistenceError
	outcome.Error = err.Error()
	return outcome, err
}
