package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Cyvadra/signal-relay/broker"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTradingMode(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/trading-mode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ModePaper, decode(t, w)["mode"])

	w = s.do(http.MethodPost, "/trading-mode", []byte(`{"mode":"LIVE"}`))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, models.ModeLive, body["mode"])
	assert.Equal(t, models.ModePaper, body["previous"])
	assert.Equal(t, models.ModeLive, s.mode.Current())

	w = s.do(http.MethodPost, "/trading-mode", []byte(`{"mode":"backtest"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ModeLive, s.mode.Current())
}

func TestBrokerConfigs(t *testing.T) {
	s := newTestServer(t, nil)

	adapter := new(MockAdapter)
	adapter.On("Authenticate", mock.Anything, mock.Anything).Return(nil)
	broker.Register("handler_mock", func() broker.Adapter { return adapter })

	w := s.do(http.MethodPost, "/brokers", []byte(`{"broker_name":"Handler_Mock","api_key":"k","api_secret":"s"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "handler_mock", body["broker_name"])
	assert.NotContains(t, body, "api_secret")

	w = s.do(http.MethodPost, "/brokers", []byte(`{"broker_name":"nobody","api_key":"k","api_secret":"s"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/brokers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Len(t, body["configs"], 1)
	assert.Contains(t, body["connected"], "handler_mock")
	assert.Contains(t, body["connected"], "zerodha")
	assert.Contains(t, body["registered"], "handler_mock")
	assert.Len(t, body["catalog"], len(broker.Catalog))
	adapter.AssertExpectations(t)
}

func TestBrokerPositions(t *testing.T) {
	s := newTestServer(t, nil)
	s.adapter.On("GetPositions", mock.Anything).Return([]broker.Position{
		{Symbol: "INFY", Quantity: 40, AveragePrice: 250},
	}, nil)

	w := s.do(http.MethodGet, "/brokers/zerodha/positions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	positions := decode(t, w)["positions"].([]interface{})
	require.Len(t, positions, 1)
	assert.Equal(t, "INFY", positions[0].(map[string]interface{})["symbol"])

	w = s.do(http.MethodGet, "/positions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["positions"], "zerodha")

	w = s.do(http.MethodGet, "/brokers/unknown/positions", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelBrokerOrder(t *testing.T) {
	s := newTestServer(t, nil)
	s.adapter.On("CancelOrder", mock.Anything, "ord-1").Return(nil)
	s.adapter.On("CancelOrder", mock.Anything, "ord-2").Return(errors.New("order already filled"))

	w := s.do(http.MethodDelete, "/brokers/zerodha/orders/ord-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode(t, w)["status"])

	w = s.do(http.MethodDelete, "/brokers/zerodha/orders/ord-2", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = s.do(http.MethodDelete, "/brokers/unknown/orders/ord-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	s.adapter.AssertExpectations(t)
}

func TestLedgerReads(t *testing.T) {
	s := newTestServer(t, nil)
	s.createStrategy(t, "INFY")

	w := s.do(http.MethodPost, "/webhook/chartink", []byte(chartinkBody))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/signals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
	signal := body["signals"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, models.SignalFilled, signal["status"])

	w = s.do(http.MethodGet, "/trades?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	for _, limit := range []string{"0", "-1", "abc"} {
		w = s.do(http.MethodGet, "/trades?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}
}
