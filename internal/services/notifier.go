package services

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Cyvadra/signal-relay/internal/config"
	"github.com/Cyvadra/signal-relay/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const telegramAPIBase = "https://api.telegram.org"

// Event kinds sent to notification endpoints
const (
	EventSignal = "signal"
	EventTrade  = "trade"
	EventError  = "error"
)

// Event is one pipeline notification
type Event struct {
	Kind    string         `json:"kind"`
	Signal  *models.Signal `json:"signal,omitempty"`
	Trade   *models.Trade  `json:"trade,omitempty"`
	Message string         `json:"message,omitempty"`
	Time    time.Time      `json:"time"`
}

// Notifier forwards pipeline events to the configured downstream endpoints.
// Delivery is asynchronous and failures are only logged.
type Notifier struct {
	client    *resty.Client
	endpoints []config.EndpointConfig
	logger    *logrus.Entry
	wg        sync.WaitGroup
}

// NewNotifier creates a new notifier
func NewNotifier(endpoints []config.EndpointConfig, logger *logrus.Entry) *Notifier {
	return &Notifier{
		client:    resty.New().SetTimeout(10 * time.Second),
		endpoints: endpoints,
		logger:    logger.WithField("component", "notifier"),
	}
}

// SignalRecorded notifies about a newly recorded signal
func (n *Notifier) SignalRecorded(signal *models.Signal) {
	copied := *signal
	n.send(Event{Kind: EventSignal, Signal: &copied, Time: time.Now()})
}

// TradeRecorded notifies about a newly recorded trade
func (n *Notifier) TradeRecorded(trade *models.Trade) {
	copied := *trade
	n.send(Event{Kind: EventTrade, Trade: &copied, Time: time.Now()})
}

// Error notifies about an execution failure
func (n *Notifier) Error(message string) {
	n.send(Event{Kind: EventError, Message: message, Time: time.Now()})
}

// Wait blocks until every in-flight delivery has finished
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) send(event Event) {
	if n == nil {
		return
	}

	for _, endpoint := range n.endpoints {
		if !endpoint.IsActive {
			continue
		}

		n.wg.Add(1)
		go func(ep config.EndpointConfig) {
			defer n.wg.Done()
			if err := n.deliver(event, ep); err != nil {
				n.logger.WithError(err).WithFields(logrus.Fields{
					"endpoint": ep.Name,
					"type":     ep.Type,
					"event":    event.Kind,
				}).Warn("failed to deliver notification")
			}
		}(endpoint)
	}
}

func (n *Notifier) deliver(event Event, endpoint config.EndpointConfig) error {
	switch endpoint.Type {
	case "telegram":
		return n.sendTelegram(event, endpoint)
	case "wechat", "dingtalk":
		return n.sendText(event, endpoint)
	case "webhook":
		return n.sendWebhook(event, endpoint)
	default:
		return fmt.Errorf("unsupported endpoint type: %s", endpoint.Type)
	}
}

func (n *Notifier) sendTelegram(event Event, endpoint config.EndpointConfig) error {
	base := telegramAPIBase
	if endpoint.URL != "" {
		base = strings.TrimRight(endpoint.URL, "/")
	}

	resp, err := n.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"chat_id":    endpoint.ChatID,
			"text":       FormatEvent(event, true),
			"parse_mode": "HTML",
		}).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", base, endpoint.Token))
	if err != nil {
		return fmt.Errorf("telegram API request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// sendText covers the WeChat Work and DingTalk robot format
func (n *Notifier) sendText(event Event, endpoint config.EndpointConfig) error {
	resp, err := n.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"msgtype": "text",
			"text": map[string]string{
				"content": FormatEvent(event, false),
			},
		}).
		Post(endpoint.URL)
	if err != nil {
		return fmt.Errorf("%s API request failed: %w", endpoint.Type, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%s API returned status %d: %s", endpoint.Type, resp.StatusCode(), resp.String())
	}
	return nil
}

func (n *Notifier) sendWebhook(event Event, endpoint config.EndpointConfig) error {
	resp, err := n.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(endpoint.URL)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// FormatEvent renders an event as a chat message, with HTML bold tags when html is set
func FormatEvent(event Event, html bool) string {
	bold := func(s string) string {
		if html {
			return "<b>" + s + "</b>"
		}
		return s
	}

	var sb strings.Builder
	switch event.Kind {
	case EventSignal:
		s := event.Signal
		sb.WriteString(bold("Signal received") + "\n\n")
		sb.WriteString(fmt.Sprintf("%s %s\n", bold("Symbol:"), s.Symbol))
		sb.WriteString(fmt.Sprintf("%s %s\n", bold("Side:"), s.SignalType))
		sb.WriteString(fmt.Sprintf("%s %d\n", bold("Quantity:"), s.Quantity))
		sb.WriteString(fmt.Sprintf("%s %.2f\n", bold("Price:"), s.Price))
	case EventTrade:
		t := event.Trade
		sb.WriteString(bold(fmt.Sprintf("Trade %s (%s)", t.Status, t.TradingMode)) + "\n\n")
		sb.WriteString(fmt.Sprintf("%s %s\n", bold("Broker:"), t.Broker))
		sb.WriteString(fmt.Sprintf("%s %s\n", bold("Symbol:"), t.Symbol))
		sb.WriteString(fmt.Sprintf("%s %s\n", bold("Side:"), t.Side))
		sb.WriteString(fmt.Sprintf("%s %d\n", bold("Quantity:"), t.Quantity))
		sb.WriteString(fmt.Sprintf("%s %.2f\n", bold("Price:"), t.Price))
		if t.OrderID != "" {
			sb.WriteString(fmt.Sprintf("%s %s\n", bold("Order:"), t.OrderID))
		}
	default:
		sb.WriteString(bold("Execution error") + "\n\n")
		sb.WriteString(event.Message + "\n")
	}
	sb.WriteString(fmt.Sprintf("%s %s", bold("Time:"), event.Time.Format("2006-01-02 15:04:05")))
	return sb.String()
}
