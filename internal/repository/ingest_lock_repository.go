package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// IngestLockRepository 提供按文档的摄取租约。
// 核心流程本身不保证"每个文档只触发一次摄取"，
// 租约把并发触发收敛为同一时刻至多一个在跑的摄取任务。
type IngestLockRepository interface {
	TryAcquire(ctx context.Context, documentID uint, ttl time.Duration) (bool, error)
	Release(ctx context.Context, documentID uint) error
}

type ingestLockRepository struct {
	redisClient *redis.Client
}

// NewIngestLockRepository 创建一个基于 Redis SETNX 的摄取租约实现。
func NewIngestLockRepository(redisClient *redis.Client) IngestLockRepository {
	return &ingestLockRepository{redisClient: redisClient}
}

func (r *ingestLockRepository) lockKey(documentID uint) string {
	return fmt.Sprintf("ingest:lock:%d", documentID)
}

// TryAcquire 尝试获取文档的摄取租约，已被占用时返回 false。
func (r *ingestLockRepository) TryAcquire(ctx context.Context, documentID uint, ttl time.Duration) (bool, error) {
	return r.redisClient.SetNX(ctx, r.lockKey(documentID), 1, ttl).Result()
}

// Release 释放文档的摄取租约。
func (r *ingestLockRepository) Release(ctx context.Context, documentID uint) error {
	return r.redisClient.Del(ctx, r.lockKey(documentID)).Err()
}
