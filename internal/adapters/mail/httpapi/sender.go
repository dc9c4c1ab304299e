// Package httpapi entrega mails a través de una API HTTP transaccional
// (POST JSON con from/to/subject/html/text y bearer key).
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"med-tracker/internal/platform/httpclient"
	"med-tracker/internal/platform/mailer"
)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration

	// MaxAttempts: 0 = 3. Solo se reintentan 5xx, 429 y errores de red.
	MaxAttempts int
	// Backoff: espera base entre intentos, crece lineal. 0 = 500ms.
	Backoff time.Duration
}

type Sender struct {
	client      *httpclient.Client
	url         string
	maxAttempts int
	backoff     time.Duration
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

func New(cfg Config) (*Sender, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mail api url is required")
	}
	c := httpclient.New(cfg.Timeout)
	if cfg.APIKey != "" {
		c.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}
	s := &Sender{client: c, url: cfg.URL, maxAttempts: cfg.MaxAttempts, backoff: cfg.Backoff}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 3
	}
	if s.backoff <= 0 {
		s.backoff = 500 * time.Millisecond
	}
	return s, nil
}

func (s *Sender) Send(ctx context.Context, msg mailer.Message) error {
	req := sendRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = s.client.DoJSON(ctx, http.MethodPost, s.url, req, nil)
		if err == nil {
			return nil
		}
		if attempt >= s.maxAttempts || ctx.Err() != nil || !retryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("mail api: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * s.backoff):
		}
	}
	return fmt.Errorf("mail api: %w", err)
}

func retryable(err error) bool {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	// sin respuesta: timeout o conexión rechazada
	var netErr net.Error
	return errors.As(err, &netErr) && !errors.Is(err, context.Canceled)
}
