package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/Cyvadra/signal-relay/internal/config"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const chartinkBody = `{"symbol":"INFY","signal_type":"BUY","price":250,"timestamp":"2024-01-15 09:30:00"}`

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(chartinkBody)
	good := sign("s3cret", chartinkBody)

	assert.True(t, VerifySignature(payload, "", ""))
	assert.True(t, VerifySignature(payload, good, "s3cret"))
	assert.True(t, VerifySignature(payload, " "+strings.ToUpper(good)+" ", "s3cret"))
	assert.False(t, VerifySignature(payload, good, "other"))
	assert.False(t, VerifySignature(payload, "", "s3cret"))
	assert.False(t, VerifySignature([]byte(`{}`), good, "s3cret"))
}

func TestWebhook(t *testing.T) {
	t.Run("paper execution", func(t *testing.T) {
		s := newTestServer(t, nil)
		strategy := s.createStrategy(t, "INFY")

		w := s.do(http.MethodPost, "/webhook/chartink", []byte(chartinkBody))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode(t, w)
		assert.Equal(t, "received", body["status"])
		assert.NotEmpty(t, body["request_id"])

		signal := body["signal"].(map[string]interface{})
		assert.Equal(t, "INFY", signal["symbol"])
		assert.Equal(t, "BUY", signal["side"])

		outcomes := body["outcomes"].([]interface{})
		require.Len(t, outcomes, 1)
		outcome := outcomes[0].(map[string]interface{})
		assert.Equal(t, "executed", outcome["status"])
		assert.Equal(t, float64(strategy.ID), outcome["strategy_id"])
		assert.Equal(t, float64(40), outcome["quantity"])
		assert.Equal(t, models.ModePaper, outcome["mode"])

		s.adapter.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	})

	t.Run("no matching strategy", func(t *testing.T) {
		s := newTestServer(t, nil)

		w := s.do(http.MethodPost, "/webhook/chartink", []byte(chartinkBody))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode(t, w)["outcomes"])
	})

	t.Run("validation failure", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.createStrategy(t, "INFY")

		w := s.do(http.MethodPost, "/webhook/chartink", []byte(`{"symbol":"INFY","signal_type":"BUY"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotEmpty(t, decode(t, w)["error"])

		w = s.do(http.MethodGet, "/signals", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), decode(t, w)["count"])
	})

	t.Run("disabled source", func(t *testing.T) {
		s := newTestServer(t, map[string]config.SignalConfig{
			"chartink":    {Enabled: true},
			"tradingview": {Enabled: false},
		})

		w := s.do(http.MethodPost, "/webhook/tradingview", []byte(`{"symbol":"INFY","action":"BUY","price":250}`))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("signature required when secret set", func(t *testing.T) {
		s := newTestServer(t, map[string]config.SignalConfig{
			"chartink": {Enabled: true, WebhookSecret: "s3cret"},
		})
		s.createStrategy(t, "INFY")

		w := s.do(http.MethodPost, "/webhook/chartink", []byte(chartinkBody))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = s.do(http.MethodPost, "/webhook/chartink", []byte(chartinkBody), SignatureHeader, sign("wrong", chartinkBody))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = s.do(http.MethodPost, "/webhook/chartink", []byte(chartinkBody), SignatureHeader, sign("s3cret", chartinkBody))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("broker error", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.createStrategy(t, "INFY")
		_, err := s.mode.Set(models.ModeLive)
		require.NoError(t, err)

		s.adapter.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		w := s.do(http.MethodPost, "/webhook/chartink", []byte(chartinkBody))
		assert.Equal(t, http.StatusBadGateway, w.Code)

		outcomes := decode(t, w)["outcomes"].([]interface{})
		require.Len(t, outcomes, 1)
		outcome := outcomes[0].(map[string]interface{})
		assert.Equal(t, "broker_error", outcome["status"])
		assert.Equal(t, "zerodha", outcome["broker"])
		assert.NotContains(t, outcome, "retryable")
		s.adapter.AssertExpectations(t)
	})
}
