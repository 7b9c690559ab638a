package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"courseos-backend/internal/logger"
	"courseos-backend/internal/models"
)

const statusTTL = 24 * time.Hour

func statusKey(creatorID uuid.UUID) string {
	return "generation_status:" + creatorID.String()
}

// UpdatesChannel is the pub/sub channel a user's websocket connections listen on.
func UpdatesChannel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

// RedisStatusStore keeps generation status in Redis so every API instance and
// worker sees the same state.
type RedisStatusStore struct {
	redis *redis.Client
}

func NewRedisStatusStore(client *redis.Client) *RedisStatusStore {
	return &RedisStatusStore{redis: client}
}

func (s *RedisStatusStore) Get(ctx context.Context, creatorID uuid.UUID) (*models.GenerationStatus, error) {
	raw, err := s.redis.Get(ctx, statusKey(creatorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read generation status: %w", err)
	}

	var st models.GenerationStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to decode generation status: %w", err)
	}
	return &st, nil
}

func (s *RedisStatusStore) Put(ctx context.Context, creatorID uuid.UUID, status *models.GenerationStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, statusKey(creatorID), data, statusTTL).Err()
}

// Claim uses an optimistic WATCH transaction on the status key, so two API
// instances racing for the same creator cannot both start a run.
func (s *RedisStatusStore) Claim(ctx context.Context, creatorID uuid.UUID, status *models.GenerationStatus, staleAfter time.Duration) (bool, error) {
	data, err := json.Marshal(status)
	if err != nil {
		return false, err
	}

	key := statusKey(creatorID)
	claimed := false
	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var current models.GenerationStatus
			if json.Unmarshal(raw, &current) == nil && isRunning(&current, staleAfter) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, statusTTL)
			return nil
		})
		if err == nil {
			claimed = true
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim generation status: %w", err)
	}
	return claimed, nil
}

func (s *RedisStatusStore) Clear(ctx context.Context, creatorID uuid.UUID) error {
	return s.redis.Del(ctx, statusKey(creatorID)).Err()
}

// RedisNotifier publishes to the per-user updates channel. Publish failures are
// logged and dropped.
type RedisNotifier struct {
	redis *redis.Client
	log   *logger.Logger
}

func NewRedisNotifier(client *redis.Client, log *logger.Logger) *RedisNotifier {
	return &RedisNotifier{redis: client, log: log.With("component", "notifier")}
}

func (n *RedisNotifier) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		n.log.Error("failed to encode update", "user_id", userID, "type", msg.Type, "error", err)
		return
	}
	if err := n.redis.Publish(ctx, UpdatesChannel(userID), data).Err(); err != nil {
		n.log.Warn("failed to publish update", "user_id", userID, "type", msg.Type, "error", err)
	}
}
