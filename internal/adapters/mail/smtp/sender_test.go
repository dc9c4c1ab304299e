package smtp

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"med-tracker/internal/platform/mailer"
)

func TestSender_Send(t *testing.T) {
	s := New(Config{Host: "mail.test", Username: "u", Password: "p"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		return nil
	}

	err := s.Send(context.Background(), mailer.Message{
		From: "no-reply@medtrack.test", To: "ana@example.com", Subject: "Confirmá tu cuenta",
		Text: "link", HTML: "<p>link</p>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "mail.test:587" || gotFrom != "no-reply@medtrack.test" || len(gotTo) != 1 || gotTo[0] != "ana@example.com" {
		t.Fatalf("unexpected envelope addr=%s from=%s to=%v", gotAddr, gotFrom, gotTo)
	}
	body := string(gotBody)
	for _, want := range []string{"To: ana@example.com", "multipart/alternative", "text/plain", "<p>link</p>"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q:\n%s", want, body)
		}
	}
}

func TestSender_SendWrapsError(t *testing.T) {
	s := New(Config{Host: "mail.test"})
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }

	if err := s.Send(context.Background(), mailer.Message{To: "a@b.c"}); err == nil || !strings.Contains(err.Error(), "refused") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestBuildMessage_EncodesSubject(t *testing.T) {
	raw, err := buildMessage(mailer.Message{Subject: "Confirmá", Text: "x"}, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	if !strings.Contains(string(raw), "Subject: =?utf-8?q?") {
		t.Fatalf("expected Q-encoded subject:\n%s", raw)
	}
}
