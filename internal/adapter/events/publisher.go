// Package events appends user lifecycle events to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "user-directory-service/internal/domain/user"
)

// DefaultStream is the stream used when none is configured.
const DefaultStream = "user-events"

// Event is the payload stored under the "event" field of each stream entry.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      UserData  `json:"data"`
}

// UserData is the user snapshot carried by an event.
type UserData struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   *int   `json:"age,omitempty"`
	State string `json:"state"`
	City  string `json:"city"`
}

// Publisher writes events with XADD.
type Publisher struct {
	client *redis.Client
	stream string
	now    func() time.Time
}

// NewPublisher creates a Publisher for stream, falling back to DefaultStream.
func NewPublisher(client *redis.Client, stream string) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{client: client, stream: stream, now: time.Now}
}

// Publish appends one event for u.
func (p *Publisher) Publish(ctx context.Context, eventType string, u *domain.User) error {
	if u == nil {
		return errors.New("cannot publish event for nil user")
	}

	event := Event{
		Type:      eventType,
		Timestamp: p.now().UTC(),
		Data: UserData{
			ID:    u.ID,
			Name:  u.Name,
			Email: u.Email,
			Age:   u.Age,
			State: u.State,
			City:  u.City,
		},
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"type":  eventType,
			"event": eventJSON,
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NoopPublisher drops every event. It is used when Redis or events are disabled.
type NoopPublisher struct{}

// Publish does nothing.
func (NoopPublisher) Publish(context.Context, string, *domain.User) error { return nil }
