package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prudhvinik1/equiptrack/internal/models"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "equipment:data"

const (
	fieldPayload   = "payload"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"
)

// RedisEquipmentRepository keeps the payload in a hash so the raw bytes,
// a write counter and the write time travel together.
type RedisEquipmentRepository struct {
	client *redis.Client
	key    string
}

func NewRedisEquipmentRepository(client *redis.Client, key string) *RedisEquipmentRepository {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisEquipmentRepository{client: client, key: key}
}

func (r *RedisEquipmentRepository) Save(ctx context.Context, payload []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, fieldPayload, payload, fieldUpdatedAt, now)
		pipe.HIncrBy(ctx, r.key, fieldVersion, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save equipment: %w", err)
	}
	return nil
}

func (r *RedisEquipmentRepository) Load(ctx context.Context) (*models.EquipmentSnapshot, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}

	payload, ok := fields[fieldPayload]
	if !ok {
		return nil, ErrNotFound
	}

	snapshot := &models.EquipmentSnapshot{Payload: []byte(payload)}

	if v, err := strconv.ParseInt(fields[fieldVersion], 10, 64); err == nil {
		snapshot.Version = v
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err == nil {
		snapshot.UpdatedAt = ts
	}
	return snapshot, nil
}
