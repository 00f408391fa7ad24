// Package mailer delivers outbound email for the notification service.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storefront/fulfillment/internal/application/notification"
	"github.com/storefront/fulfillment/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Provider names accepted in email configuration.
const (
	ProviderLog  = "log"
	ProviderHTTP = "http"
)

var (
	// ErrMissingRecipient is returned for messages without a To address
	ErrMissingRecipient = errors.New("mailer: message has no recipient")
	// ErrDeliveryFailed wraps non-2xx responses from the email API
	ErrDeliveryFailed = errors.New("mailer: delivery failed")
)

var (
	_ notification.Mailer = (*HTTPMailer)(nil)
	_ notification.Mailer = (*LogMailer)(nil)
)

// New returns the mailer selected by cfg.Provider.
func New(cfg config.EmailConfig, logger *zap.Logger) (notification.Mailer, error) {
	switch cfg.Provider {
	case "", ProviderLog:
		return NewLogMailer(cfg.From, logger), nil
	case ProviderHTTP:
		return NewHTTPMailer(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(from string, logger *zap.Logger) *LogMailer {
	return &LogMailer{from: from, logger: logger}
}

// Send logs msg.
func (m *LogMailer) Send(_ context.Context, msg notification.Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrMissingRecipient
	}
	m.logger.Info("Email (log provider)",
		zap.String("from", m.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.TextBody)),
	)
	return nil
}

// HTTPMailer posts messages as JSON to a transactional email API.
type HTTPMailer struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
	logger     *zap.Logger
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// NewHTTPMailer creates an HTTPMailer
func NewHTTPMailer(cfg config.EmailConfig, logger *zap.Logger) (*HTTPMailer, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("email api url is required")
	}
	if cfg.From == "" {
		return nil, errors.New("email from address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPMailer{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Send delivers msg. Any 2xx response counts as accepted.
func (m *HTTPMailer) Send(ctx context.Context, msg notification.Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return ErrMissingRecipient
	}

	body, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: msg.Subject,
		Text:    msg.TextBody,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	m.logger.Debug("Email accepted",
		zap.String("to", to),
		zap.String("subject", msg.Subject),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
