package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alovak/cardflow-gateway/gateway/models"
	"github.com/redis/go-redis/v9"
)

// RedisRepository is a PaymentStore backed by Redis. Each payment is one JSON value written
// with SETNX and no expiry, so a stored record is never replaced.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client, prefix: "payment:"}
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + id
}

func (r *RedisRepository) Add(ctx context.Context, payment models.Payment) error {
	b, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("encoding payment: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.key(payment.ID), b, 0).Result()
	if err != nil {
		return fmt.Errorf("storing payment: %w", err)
	}
	if !ok {
		return fmt.Errorf("payment %s: %w", payment.ID, ErrDuplicatePayment)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, id string) (models.Payment, bool, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Payment{}, false, nil
	}
	if err != nil {
		return models.Payment{}, false, fmt.Errorf("loading payment: %w", err)
	}
	var p models.Payment
	if err := json.Unmarshal(b, &p); err != nil {
		return models.Payment{}, false, fmt.Errorf("decoding payment %s: %w", id, err)
	}
	return p, true, nil
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
