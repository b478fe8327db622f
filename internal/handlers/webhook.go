package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Cyvadra/signal-relay/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body
const SignatureHeader = "X-Signature"

// maxWebhookBody bounds how much of a webhook body is read
const maxWebhookBody = 1 << 20

// VerifySignature checks signature against HMAC-SHA256(secret, payload).
// An empty secret disables verification.
func VerifySignature(payload []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	signature = strings.ToLower(strings.TrimSpace(signature))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Webhook returns the handler for one signal source
func (h *Handler) Webhook(source string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		log := h.logger.WithFields(logrus.Fields{"source": source, "request_id": requestID})

		settings, ok := h.signals[source]
		if !ok || !settings.Enabled {
			c.JSON(http.StatusForbidden, gin.H{"error": "signal source disabled", "request_id": requestID})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			log.WithError(err).Warn("failed to read request body")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body", "request_id": requestID})
			return
		}

		if !VerifySignature(body, c.GetHeader(SignatureHeader), settings.WebhookSecret) {
			log.Warn("invalid webhook signature")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature", "request_id": requestID})
			return
		}

		result, err := h.pipeline.Process(c.Request.Context(), source, body)
		if err != nil {
			response := gin.H{"error": err.Error(), "request_id": requestID}
			var persistErr *services.PersistenceError
			if errors.As(err, &persistErr) && result != nil {
				response["warning"] = "the signal may be recorded twice if this webhook is retried"
				response["outcomes"] = result.Outcomes
			}
			log.WithError(err).Warn("webhook processing failed")
			c.JSON(statusFor(err), response)
			return
		}

		status := http.StatusOK
		if result.HasBrokerError() {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"status":     "received",
			"request_id": requestID,
			"signal":     result.Signal,
			"outcomes":   result.Outcomes,
		})
	}
}
