// Package kafka publica los eventos de dominio en un tópico de Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"med-tracker/internal/platform/logger"
	"med-tracker/internal/ports/events"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "med-tracker.events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string

	// Timeout por publicación; el request HTTP no espera más que esto.
	Timeout time.Duration
}

type Publisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	log     logger.Logger
}

func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // misma key => misma partición
		RequiredAcks: kafka.RequireOne,
	}
	return newPublisher(w, topic, cfg.Timeout, log), nil
}

func newPublisher(w messageWriter, topic string, timeout time.Duration, log logger.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{writer: w, topic: topic, timeout: timeout, log: log}
}

func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("event publish failed", map[string]any{
			"topic": p.topic, "type": e.Type, "key": e.Key, "error": err,
		})
		return fmt.Errorf("kafka publish: %w", err)
	}
	p.log.Debug("event published", map[string]any{"topic": p.topic, "type": e.Type, "key": e.Key})
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// encode: key = entidad, value = evento JSON, header "type" para filtrar sin parsear.
func encode(e events.Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.Key),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}, nil
}
