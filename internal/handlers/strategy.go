package handlers

import (
	"net/http"

	"github.com/Cyvadra/signal-relay/internal/services"
	"github.com/gin-gonic/gin"
)

// CreateStrategy registers a new strategy
func (h *Handler) CreateStrategy(c *gin.Context) {
	var req services.CreateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strategy, err := h.strategies.Create(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, strategy)
}

// ListStrategies lists every strategy
func (h *Handler) ListStrategies(c *gin.Context) {
	strategies, err := h.strategies.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"strategies": strategies, "count": len(strategies)})
}

// GetStrategy returns one strategy by id
func (h *Handler) GetStrategy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	strategy, err := h.strategies.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, strategy)
}

// ActivateStrategy marks a strategy active
func (h *Handler) ActivateStrategy(c *gin.Context) {
	h.setStrategyActive(c, true)
}

// DeactivateStrategy marks a strategy inactive
func (h *Handler) DeactivateStrategy(c *gin.Context) {
	h.setStrategyActive(c, false)
}

func (h *Handler) setStrategyActive(c *gin.Context, active bool) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	strategy, err := h.strategies.SetActive(c.Request.Context(), id, active)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, strategy)
}
