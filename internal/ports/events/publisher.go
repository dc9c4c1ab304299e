package events

import (
	"context"
	"time"
)

// Event es un cambio de dominio publicado hacia afuera (best-effort).
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Publisher publica eventos de dominio. Las implementaciones no deben bloquear
// más allá del ctx recibido.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop descarta todos los eventos (modo dev / tests).
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
