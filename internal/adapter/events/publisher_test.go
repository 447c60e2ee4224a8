package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "user-directory-service/internal/domain/user"
)

func setupPublisher(t *testing.T, stream string) (*Publisher, *redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPublisher(client, stream), client, mr
}

func TestPublisher_Publish(t *testing.T) {
	p, client, _ := setupPublisher(t, "")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }
	ctx := context.Background()
	age := 30

	err := p.Publish(ctx, domain.EventCreated, &domain.User{ID: 7, Name: "Ana", Email: "ana@x.com", Age: &age, State: "SP"})
	require.NoError(t, err)

	entries, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EventCreated, entries[0].Values["type"])

	var event Event
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["event"].(string)), &event))
	assert.Equal(t, domain.EventCreated, event.Type)
	assert.True(t, fixed.Equal(event.Timestamp))
	assert.Equal(t, int64(7), event.Data.ID)
	assert.Equal(t, "ana@x.com", event.Data.Email)
	assert.Equal(t, 30, *event.Data.Age)
}

func TestPublisher_CustomStreamKeepsOrder(t *testing.T) {
	p, client, _ := setupPublisher(t, "audit")
	ctx := context.Background()
	u := &domain.User{ID: 1, Name: "Ana", Email: "ana@x.com"}

	require.NoError(t, p.Publish(ctx, domain.EventCreated, u))
	require.NoError(t, p.Publish(ctx, domain.EventUpdated, u))
	require.NoError(t, p.Publish(ctx, domain.EventDeleted, u))

	entries, err := client.XRange(ctx, "audit", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.EventCreated, entries[0].Values["type"])
	assert.Equal(t, domain.EventUpdated, entries[1].Values["type"])
	assert.Equal(t, domain.EventDeleted, entries[2].Values["type"])
}

func TestPublisher_NilUser(t *testing.T) {
	p, _, _ := setupPublisher(t, "")

	assert.Error(t, p.Publish(context.Background(), domain.EventCreated, nil))
}

func TestPublisher_RedisDown(t *testing.T) {
	p, _, mr := setupPublisher(t, "")
	mr.Close()

	err := p.Publish(context.Background(), domain.EventDeleted, &domain.User{ID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish event")
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), domain.EventCreated, nil))
}
