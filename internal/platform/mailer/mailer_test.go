package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	msgs []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func TestMailer_SendConfirmation(t *testing.T) {
	sender := &captureSender{}
	m := New(sender, nil, Options{
		From:          "no-reply@medtrack.test",
		AppName:       "MedTrack",
		PublicBaseURL: "https://medtrack.test/",
	})
	m.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, m.SendConfirmation(context.Background(), "ana@example.com", "tok-1"))
	require.Len(t, sender.msgs, 1)

	msg := sender.msgs[0]
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "no-reply@medtrack.test", msg.From)
	assert.Contains(t, msg.Subject, "MedTrack")
	assert.Contains(t, msg.HTML, `href="https://medtrack.test/register/confirm?token=tok-1"`)
	assert.Contains(t, msg.Text, "https://medtrack.test/register/confirm?token=tok-1")
	assert.True(t, strings.Contains(msg.HTML, "2025-03-11 09:00 UTC"))
}

func TestMailer_ReturnsSenderError(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	m := New(sender, nil, Options{})

	err := m.SendConfirmation(context.Background(), "ana@example.com", "tok")
	assert.EqualError(t, err, "smtp down")
}
