package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Cyvadra/signal-relay/internal/config"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path string
	body map[string]interface{}
}

func captureServer(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		captured = append(captured, capturedRequest{path: r.URL.Path, body: body})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), captured...)
	}
}

func TestNotifierDeliversToActiveEndpoints(t *testing.T) {
	server, captured := captureServer(t, http.StatusOK)

	notifier := NewNotifier([]config.EndpointConfig{
		{Name: "tg", Type: "telegram", URL: server.URL, Token: "abc", ChatID: "42", IsActive: true},
		{Name: "ding", Type: "dingtalk", URL: server.URL + "/ding", IsActive: true},
		{Name: "hook", Type: "webhook", URL: server.URL + "/hook", IsActive: true},
		{Name: "off", Type: "webhook", URL: server.URL + "/off", IsActive: false},
	}, testLogger())

	notifier.TradeRecorded(&models.Trade{Broker: "paper", Symbol: "INFY", Side: "BUY", Quantity: 40, Price: 250, Status: "filled", TradingMode: "paper"})
	notifier.Wait()

	requests := captured()
	require.Len(t, requests, 3)

	byPath := map[string]map[string]interface{}{}
	for _, req := range requests {
		byPath[req.path] = req.body
	}

	telegram := byPath["/botabc/sendMessage"]
	require.NotNil(t, telegram)
	assert.Equal(t, "42", telegram["chat_id"])
	assert.Contains(t, telegram["text"], "<b>Symbol:</b> INFY")

	ding := byPath["/ding"]
	require.NotNil(t, ding)
	assert.Equal(t, "text", ding["msgtype"])

	hook := byPath["/hook"]
	require.NotNil(t, hook)
	assert.Equal(t, EventTrade, hook["kind"])

	_, off := byPath["/off"]
	assert.False(t, off)
}

func TestNotifierFailuresAreNotFatal(t *testing.T) {
	server, captured := captureServer(t, http.StatusInternalServerError)

	notifier := NewNotifier([]config.EndpointConfig{
		{Name: "hook", Type: "webhook", URL: server.URL, IsActive: true},
		{Name: "bad", Type: "pager", URL: server.URL, IsActive: true},
	}, testLogger())

	notifier.Error("broker down")
	notifier.Wait()
	assert.Len(t, captured(), 1)
}

func TestNilNotifierIsANoop(t *testing.T) {
	var notifier *Notifier
	notifier.Error("ignored")
	notifier.SignalRecorded(&models.Signal{Symbol: "INFY"})
	notifier.Wait()
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

	text := FormatEvent(Event{Kind: EventSignal, Signal: &models.Signal{Symbol: "INFY", SignalType: "SELL", Quantity: 3, Price: 10}, Time: at}, false)
	assert.True(t, strings.HasPrefix(text, "Signal received"))
	assert.Contains(t, text, "Side: SELL")
	assert.Contains(t, text, "Time: 2024-01-15 09:30:00")
	assert.NotContains(t, text, "<b>")

	html := FormatEvent(Event{Kind: EventTrade, Trade: &models.Trade{Status: "open", TradingMode: "live", OrderID: "77"}, Time: at}, true)
	assert.Contains(t, html, "<b>Trade open (live)</b>")
	assert.Contains(t, html, "<b>Order:</b> 77")
}
