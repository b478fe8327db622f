package services

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Cyvadra/signal-relay/internal/models"
)

// Signal sources
const (
	SourceChartink    = "chartink"
	SourceTradingView = "tradingview"
)

// SignalSources lists every source a webhook can be received from
var SignalSources = []string{SourceChartink, SourceTradingView}

var chartinkSymbol = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// chartinkTimeFormats are tried in order when parsing a chartink timestamp
var chartinkTimeFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"02/01/2006 15:04:05",
}

// ValidatedSignal is a well-formed inbound signal
type ValidatedSignal struct {
	Source     string    `json:"source"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Price      float64   `json:"price"`
	Timestamp  time.Time `json:"timestamp"`
	SourceTime time.Time `json:"source_time"`
}

// IsKnownSource reports whether source is a supported signal source
func IsKnownSource(source string) bool {
	for _, s := range SignalSources {
		if s == source {
			return true
		}
	}
	return false
}

// Validate checks a raw webhook payload for the given source
func Validate(source string, raw []byte) (*ValidatedSignal, error) {
	return ValidateAt(source, raw, time.Now())
}

// ValidateAt is Validate with an explicit receive time
func ValidateAt(source string, raw []byte, receivedAt time.Time) (*ValidatedSignal, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}

	switch source {
	case SourceChartink:
		return validateChartink(fields, receivedAt)
	case SourceTradingView:
		return validateTradingView(fields, receivedAt)
	default:
		return nil, validationErrorf("unknown signal source %q", source)
	}
}

func decodeFields(raw []byte) (map[string]interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var fields map[string]interface{}
	if err := decoder.Decode(&fields); err != nil {
		return nil, validationErrorf("payload is not a JSON object: %v", err)
	}
	if fields == nil {
		return nil, validationErrorf("payload is not a JSON object")
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, validationErrorf("payload has trailing data after the JSON object")
	}
	return fields, nil
}

func validateChartink(fields map[string]interface{}, receivedAt time.Time) (*ValidatedSignal, error) {
	if err := requireFields(fields, "symbol", "signal_type", "price", "timestamp"); err != nil {
		return nil, err
	}

	signalType, ok := fields["signal_type"].(string)
	if !ok || (signalType != models.SideBuy && signalType != models.SideSell) {
		return nil, validationErrorf("signal_type must be BUY or SELL")
	}

	price, err := parsePrice(fields["price"])
	if err != nil {
		return nil, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, validationErrorf("price must be a positive finite number")
	}

	symbol, ok := fields["symbol"].(string)
	if !ok || !chartinkSymbol.MatchString(symbol) {
		return nil, validationErrorf("symbol must match %s", chartinkSymbol.String())
	}

	return &ValidatedSignal{
		Source:     SourceChartink,
		Symbol:     symbol,
		Side:       signalType,
		Price:      price,
		Timestamp:  receivedAt,
		SourceTime: parseSignalTime(fields["timestamp"], receivedAt),
	}, nil
}

// validateTradingView does not check the sign of the price
func validateTradingView(fields map[string]interface{}, receivedAt time.Time) (*ValidatedSignal, error) {
	if err := requireFields(fields, "symbol", "action", "price"); err != nil {
		return nil, err
	}

	action, ok := fields["action"].(string)
	switch {
	case !ok:
		return nil, validationErrorf("action must be a string")
	case action == "BUY" || action == "buy":
		action = models.SideBuy
	case action == "SELL" || action == "sell":
		action = models.SideSell
	default:
		return nil, validationErrorf("action must be one of BUY, SELL, buy, sell")
	}

	price, err := parsePrice(fields["price"])
	if err != nil {
		return nil, err
	}

	symbol, ok := fields["symbol"].(string)
	if !ok || strings.TrimSpace(symbol) == "" {
		return nil, validationErrorf("symbol must be a non-empty string")
	}

	return &ValidatedSignal{
		Source:     SourceTradingView,
		Symbol:     symbol,
		Side:       action,
		Price:      price,
		Timestamp:  receivedAt,
		SourceTime: receivedAt,
	}, nil
}

func requireFields(fields map[string]interface{}, names ...string) error {
	for _, name := range names {
		value, ok := fields[name]
		if !ok || value == nil {
			return validationErrorf("missing required field %q", name)
		}
	}
	return nil
}

// parsePrice accepts a JSON number or a numeric string
func parsePrice(value interface{}) (float64, error) {
	var text string
	switch v := value.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return 0, validationErrorf("price must be a number")
	}

	price, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, validationErrorf("price %q is not a number", text)
	}
	return price, nil
}

// parseSignalTime falls back to the receive time when the timestamp is unreadable
func parseSignalTime(value interface{}, fallback time.Time) time.Time {
	text, ok := value.(string)
	if !ok {
		return fallback
	}
	for _, layout := range chartinkTimeFormats {
		if t, err := time.Parse(layout, strings.TrimSpace(text)); err == nil {
			return t
		}
	}
	return fallback
}
