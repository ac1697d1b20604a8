// Package events publishes domain events to NATS.
//
// Events are published to subjects of the form:
//
//	<prefix>.article.ingested
//	<prefix>.user.created
//
// Publishing is best effort. Callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	TypeArticleIngested = "article.ingested"
	TypeUserCreated     = "user.created"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// ArticleIngested is emitted when an article is stored for the first time.
type ArticleIngested struct {
	ArticleID  string `json:"articleId"`
	ExternalID string `json:"externalId"`
	Category   string `json:"category"`
	Source     string `json:"source"`
}

// UserCreated is emitted when an account is created.
type UserCreated struct {
	UserID   string `json:"userId"`
	Provider string `json:"provider"`
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

// NATSPublisher publishes events on a NATS connection.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	now    func() time.Time
}

// NewNATSPublisher wraps nc. prefix defaults to "newsd".
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "newsd"
	}
	return &NATSPublisher{nc: nc, prefix: prefix, now: func() time.Time { return time.Now().UTC() }}
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Publish(ctx context.Context, eventType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", eventType, err)
	}
	msg, err := json.Marshal(Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now(),
		Data:       payload,
	})
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", eventType, err)
	}
	if err := p.nc.Publish(p.Subject(eventType), msg); err != nil {
		return fmt.Errorf("publishing %s: %w", eventType, err)
	}
	return nil
}

// Connect dials a NATS server with reconnect settings suited to a long-lived service.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("newsd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return nc, nil
}
