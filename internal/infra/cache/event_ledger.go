package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/greenlineai/webhook-reconciler/internal/usecase"
)

const DefaultLedgerTTL = 7 * 24 * time.Hour

// keyValue is the slice of redis.Cmdable the ledger needs.
type keyValue interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// EventLedger records provider event ids that were fully applied so replays
// are acknowledged without touching the store again. Stripe retries for up to
// three days, the TTL only needs to outlive that.
type EventLedger struct {
	client keyValue
	prefix string
	ttl    time.Duration
}

func NewEventLedger(client keyValue, ttl time.Duration) *EventLedger {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &EventLedger{client: client, prefix: "webhook:event", ttl: ttl}
}

func (l *EventLedger) key(provider usecase.Provider, eventID string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, provider, eventID)
}

func (l *EventLedger) Seen(ctx context.Context, provider usecase.Provider, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("checking event ledger: %w", err)
	}
	return n > 0, nil
}

func (l *EventLedger) Mark(ctx context.Context, provider usecase.Provider, eventID string) error {
	if err := l.client.Set(ctx, l.key(provider, eventID), time.Now().UTC().Format(time.RFC3339), l.ttl).Err(); err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// NewClient connects to REDIS_URL and pings it once.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}
