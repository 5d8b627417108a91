package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"intake/internal/consultation/models"
	"intake/pkg/platform/sentinel"
)

const keyPrefix = "consultation:"

// RedisStore keeps each consultation as a JSON string under
// "consultation:{id}". A zero ttl keeps keys forever.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, c models.Consultation) error {
	payload, err := json.Marshal(toRecord(c))
	if err != nil {
		return fmt.Errorf("encode consultation: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+c.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set consultation: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*models.Consultation, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("redis get consultation: %w", err)
	}
	var r consultationRecord
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decode consultation: %w", err)
	}
	c := fromRecord(r)
	return &c, nil
}
