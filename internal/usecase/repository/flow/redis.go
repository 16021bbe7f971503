package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"medusa/internal/entity"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "medusa:flow:"

// RedisRepository keeps flows in Redis so that several bot processes can
// share them. Abandoned flows expire after ttl.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func (r *RedisRepository) Save(ctx context.Context, userID int64, flow entity.Flow) error {
	raw, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save flow: %w", err)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, userID int64) (entity.Flow, error) {
	raw, err := r.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.Flow{}, entity.FlowNotFoundErr
	}
	if err != nil {
		return entity.Flow{}, fmt.Errorf("get flow: %w", err)
	}

	var flow entity.Flow
	if err := json.Unmarshal(raw, &flow); err != nil {
		return entity.Flow{}, err
	}
	return flow, nil
}

func (r *RedisRepository) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}
