package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/internal/config"
	"github.com/Cyvadra/signal-relay/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services the HTTP handlers call into
type Dependencies struct {
	Pipeline       *services.Pipeline
	Strategies     *services.StrategyService
	Ledger         *services.Ledger
	Brokers        *services.BrokerService
	Manager        *broker.Manager
	Mode           *services.ModeState
	Signals        map[string]config.SignalConfig
	RequestTimeout time.Duration
	Logger         *logrus.Entry
}

// Handler serves the webhook and management API
type Handler struct {
	pipeline       *services.Pipeline
	strategies     *services.StrategyService
	ledger         *services.Ledger
	brokers        *services.BrokerService
	manager        *broker.Manager
	mode           *services.ModeState
	signals        map[string]config.SignalConfig
	requestTimeout time.Duration
	logger         *logrus.Entry
}

// NewHandler creates a new handler
func NewHandler(deps Dependencies) *Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Handler{
		pipeline:       deps.Pipeline,
		strategies:     deps.Strategies,
		ledger:         deps.Ledger,
		brokers:        deps.Brokers,
		manager:        deps.Manager,
		mode:           deps.Mode,
		signals:        deps.Signals,
		requestTimeout: timeout,
		logger:         logger.WithField("component", "http"),
	}
}

// Health reports liveness and the current trading mode
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"service":      "signal-relay",
		"trading_mode": h.mode.Current(),
	})
}

// statusFor maps the service error taxonomy onto HTTP statuses
func statusFor(err error) int {
	var (
		validationErr *services.ValidationError
		sizingErr     *services.SizingError
		riskErr       *services.RiskRejected
		executionErr  *services.ExecutionError
		brokerErr     *broker.BrokerError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrStrategyNotFound), errors.Is(err, broker.ErrBrokerNotFound):
		return http.StatusNotFound
	case errors.As(err, &sizingErr), errors.As(err, &riskErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &executionErr), errors.As(err, &brokerErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

func parseLimit(c *gin.Context) (int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultListLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return limit, true
}
