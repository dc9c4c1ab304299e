// Package mailer arma los emails de la aplicación y los entrega con un Sender.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"med-tracker/internal/platform/logger"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender entrega un mensaje ya armado (smtp, api http, log).
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Options struct {
	From          string
	AppName       string
	PublicBaseURL string
	TokenTTL      time.Duration
}

// Mailer implementa users.ConfirmationSender.
type Mailer struct {
	sender Sender
	log    logger.Logger
	opts   Options
	now    func() time.Time
}

func New(sender Sender, log logger.Logger, opts Options) *Mailer {
	if log == nil {
		log = logger.Nop()
	}
	if opts.AppName == "" {
		opts.AppName = "med-tracker"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Mailer{sender: sender, log: log, opts: opts, now: time.Now}
}

// ConfirmationLink arma la URL pública de confirmación.
func (m *Mailer) ConfirmationLink(token string) string {
	return m.opts.PublicBaseURL + "/register/confirm?token=" + url.QueryEscape(token)
}

// SendConfirmation envía el link de confirmación. Los fallos se loguean y se
// devuelven; el caller decide si importan.
func (m *Mailer) SendConfirmation(ctx context.Context, email, token string) error {
	link := m.ConfirmationLink(token)
	expires := m.now().Add(m.opts.TokenTTL).UTC().Format("2006-01-02 15:04 MST")

	var html bytes.Buffer
	err := templates.ExecuteTemplate(&html, "confirmation.html", map[string]string{
		"AppName":   m.opts.AppName,
		"Link":      link,
		"ExpiresAt": expires,
	})
	if err != nil {
		return fmt.Errorf("render confirmation mail: %w", err)
	}

	msg := Message{
		From:    m.opts.From,
		To:      email,
		Subject: "Confirmá tu cuenta de " + m.opts.AppName,
		HTML:    html.String(),
		Text:    fmt.Sprintf("Confirmá tu cuenta en %s (vence el %s)", link, expires),
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		m.log.Error("confirmation mail failed", map[string]any{"to": email, "error": err})
		return err
	}
	m.log.Info("confirmation mail sent", map[string]any{"to": email})
	return nil
}

// LogSender no envía nada: loguea el mensaje (modo dev).
type LogSender struct {
	Log logger.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.Info("mail (log driver)", map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
		"text":    msg.Text,
	})
	return nil
}
