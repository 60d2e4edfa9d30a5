package service

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound 刷新令牌不存在、已使用或已过期
var ErrSessionNotFound = errors.New("refresh session not found")

// RefreshStore 刷新令牌会话存储，Consume 保证同一令牌只能使用一次
type RefreshStore interface {
	Save(ctx context.Context, jti, userID string, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (string, error)
	Revoke(ctx context.Context, jti string) error
}

const refreshKeyPrefix = "token:refresh:"

// RedisRefreshStore Redis 实现
type RedisRefreshStore struct {
	rdb *redis.Client
}

func NewRedisRefreshStore(rdb *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{rdb: rdb}
}

func (s *RedisRefreshStore) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, refreshKeyPrefix+jti, userID, ttl).Err()
}

func (s *RedisRefreshStore) Consume(ctx context.Context, jti string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, refreshKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	return userID, err
}

func (s *RedisRefreshStore) Revoke(ctx context.Context, jti string) error {
	return s.rdb.Del(ctx, refreshKeyPrefix+jti).Err()
}

// DBRefreshStore 未配置Redis时使用数据库表
type DBRefreshStore struct {
	users *repository.UserRepository
}

func NewDBRefreshStore(users *repository.UserRepository) *DBRefreshStore {
	return &DBRefreshStore{users: users}
}

func (s *DBRefreshStore) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	now := time.Now()
	if err := s.users.PurgeSessions(ctx, now); err != nil {
		return err
	}
	return s.users.SaveSession(ctx, &entity.RefreshSession{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
	})
}

func (s *DBRefreshStore) Consume(ctx context.Context, jti string) (string, error) {
	session, err := s.users.FindSession(ctx, jti, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	deleted, err := s.users.DeleteSession(ctx, jti)
	if err != nil {
		return "", err
	}
	if !deleted {
		// 并发请求已消费
		return "", ErrSessionNotFound
	}
	return session.UserID, nil
}

func (s *DBRefreshStore) Revoke(ctx context.Context, jti string) error {
	_, err := s.users.DeleteSession(ctx, jti)
	return err
}
