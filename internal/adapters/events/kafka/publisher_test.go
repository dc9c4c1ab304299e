package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"med-tracker/internal/ports/events"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "topic", 0, nil)

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), events.Event{
		Type: "medication.created", Key: "m-1", OccurredAt: at,
		Payload: map[string]any{"name": "Lisinopril"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "m-1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "medication.created", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "medication.created", decoded["type"])
	assert.Equal(t, "Lisinopril", decoded["payload"].(map[string]any)["name"])
}

func TestPublisher_WrapsWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newPublisher(w, "topic", time.Second, nil)

	err := p.Publish(context.Background(), events.Event{Type: "x", Key: "k"})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewPublisher(Config{Brokers: []string{" ", ""}}, nil)
	assert.Error(t, err)

	p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopic, p.topic)
	_ = p.Close()
}
