// README: Redis-backed cart storage, one JSON document per terminal with a sliding TTL.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "cart:"
	updateRetries = 5
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func cartKey(terminal string) string {
	return keyPrefix + terminal
}

// Load returns the terminal's cart, or an empty one when nothing is stored.
func (s *RedisStore) Load(ctx context.Context, terminal string) (*Cart, error) {
	return decodeCart(s.client.Get(ctx, cartKey(terminal)), terminal)
}

// Update runs fn on the stored cart under WATCH and writes the result back.
// Concurrent writers on the same terminal retry; an emptied cart is deleted.
func (s *RedisStore) Update(ctx context.Context, terminal string, fn func(*Cart) error) (*Cart, error) {
	key := cartKey(terminal)
	var out *Cart
	txf := func(tx *redis.Tx) error {
		c, err := decodeCart(tx.Get(ctx, key), terminal)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if c.Empty() {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = c
		return nil
	}

	for i := 0; i < updateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("update cart %s: too many concurrent writers", terminal)
}

func (s *RedisStore) Delete(ctx context.Context, terminal string) error {
	return s.client.Del(ctx, cartKey(terminal)).Err()
}

func decodeCart(cmd *redis.StringCmd, terminal string) (*Cart, error) {
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return &Cart{Terminal: terminal}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", terminal, err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", terminal, err)
	}
	c.Terminal = terminal
	return &c, nil
}
