package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/internal/services"
	"github.com/gin-gonic/gin"
)

var catalogOrderTypes = []broker.OrderType{
	broker.OrderTypeMarket,
	broker.OrderTypeLimit,
	broker.OrderTypeStopLoss,
	broker.OrderTypeStopLossMarket,
}

type tradingModeRequest struct {
	Mode string `json:"mode"`
}

// brokerListing is one catalog entry as shown by the API
type brokerListing struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Exchanges    []string `json:"exchanges"`
	OrderTypes   []string `json:"order_types"`
	ProductTypes []string `json:"product_types"`
	Connected    bool     `json:"connected"`
}

// GetTradingMode returns the process-wide trading mode
func (h *Handler) GetTradingMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mode": h.mode.Current()})
}

// SetTradingMode switches between paper and live trading
func (h *Handler) SetTradingMode(c *gin.Context) {
	var req tradingModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	previous, err := h.mode.Set(strings.ToLower(strings.TrimSpace(req.Mode)))
	if err != nil {
		h.writeError(c, err)
		return
	}

	current := h.mode.Current()
	if previous != current {
		h.logger.WithField("previous", previous).WithField("mode", current).Warn("trading mode changed")
	}
	c.JSON(http.StatusOK, gin.H{"mode": current, "previous": previous})
}

// UpsertBrokerConfig stores broker credentials and reconnects the adapter
func (h *Handler) UpsertBrokerConfig(c *gin.Context) {
	var req services.BrokerConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	cfg, err := h.brokers.Upsert(ctx, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// ListBrokers lists stored broker configs along with the known brokers
func (h *Handler) ListBrokers(c *gin.Context) {
	configs, err := h.brokers.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	connected := make(map[string]bool)
	for _, name := range h.manager.Names() {
		connected[name] = true
	}

	catalog := make([]brokerListing, 0, len(broker.Catalog))
	for _, name := range broker.CatalogNames() {
		info := broker.Catalog[name]
		orderTypes := make([]string, 0, len(info.OrderTypes))
		for _, t := range catalogOrderTypes {
			if info.SupportsOrderType(t) {
				orderTypes = append(orderTypes, string(t))
			}
		}
		catalog = append(catalog, brokerListing{
			Name:         info.Name,
			DisplayName:  info.DisplayName,
			Exchanges:    info.Exchanges,
			OrderTypes:   orderTypes,
			ProductTypes: info.ProductTypes,
			Connected:    connected[name],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"configs":    configs,
		"catalog":    catalog,
		"registered": broker.RegisteredBrokers(),
		"connected":  h.manager.Names(),
	})
}

// GetBrokerPositions returns the open positions held at one broker
func (h *Handler) GetBrokerPositions(c *gin.Context) {
	name := strings.ToLower(c.Param("name"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	positions, err := h.manager.GetPositions(ctx, name)
	if err != nil {
		h.writeBrokerError(c, name, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"broker": name, "positions": positions})
}

// GetAllPositions returns positions from every connected broker
func (h *Handler) GetAllPositions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{"positions": h.manager.GetAllPositions(ctx)})
}

// CancelBrokerOrder cancels an order placed through one broker
func (h *Handler) CancelBrokerOrder(c *gin.Context) {
	name := strings.ToLower(c.Param("name"))
	orderID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	if err := h.manager.CancelOrder(ctx, name, orderID); err != nil {
		h.writeBrokerError(c, name, err)
		return
	}

	h.logger.WithField("broker", name).WithField("order_id", orderID).Info("order cancelled")
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "broker": name, "order_id": orderID})
}

func (h *Handler) writeBrokerError(c *gin.Context, name string, err error) {
	if errors.Is(err, broker.ErrBrokerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.writeError(c, broker.AsBrokerError(name, err))
}

// ListSignals returns the most recent signals
func (h *Handler) ListSignals(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	signals, err := h.ledger.ListRecentSignals(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}

// ListTrades returns the most recent trades
func (h *Handler) ListTrades(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	trades, err := h.ledger.ListRecentTrades(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}
