package membership

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-membership/internal/models"
)

const memberKeyPrefix = "member:"

// Cache keeps member records in Redis as JSON.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

// Get returns (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, memberID string) (*models.Member, error) {
	raw, err := c.Client.Get(ctx, memberKeyPrefix+memberID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m models.Member
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Cache) Set(ctx context.Context, m *models.Member) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, memberKeyPrefix+m.MemberID, raw, c.TTL).Err()
}

func (c *Cache) Invalidate(ctx context.Context, memberID string) error {
	return c.Client.Del(ctx, memberKeyPrefix+memberID).Err()
}
