package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/dailog/backend/internal/config"
	"github.com/dailog/backend/internal/model"
)

// Redis 타임아웃 기본값
const (
	redisDialTimeout  = 5 * time.Second
	redisReadTimeout  = 3 * time.Second
	redisWriteTimeout = 3 * time.Second
	connectMaxTries   = 5
	deleteMaxRetries  = 5
)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	dbIndex, err := strconv.Atoi(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB %q: %w", cfg.DB, err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           dbIndex,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisReadTimeout,
		WriteTimeout: redisWriteTimeout,
	})

	_, err = backoff.Retry(ctx, func() (string, error) {
		return client.Ping(ctx).Result()
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(connectMaxTries))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// RedisRefreshStore keeps two keys per live token, both with the same TTL:
//
//	<prefix>refresh:user:<username>  -> token
//	<prefix>refresh:token:<sha256>   -> username
type RedisRefreshStore struct {
	client    redis.UniversalClient
	keyPrefix string

	// 테스트 전용: DeleteByToken 이 user 키를 읽은 직후 호출
	afterRead func()
}

func NewRedisRefreshStore(client redis.UniversalClient, keyPrefix string) *RedisRefreshStore {
	return &RedisRefreshStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisRefreshStore) userKey(username string) string {
	return s.keyPrefix + "refresh:user:" + username
}

func (s *RedisRefreshStore) tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.keyPrefix + "refresh:token:" + hex.EncodeToString(sum[:])
}

func (s *RedisRefreshStore) Save(ctx context.Context, username, token string, ttl time.Duration) error {
	userKey := s.userKey(username)

	previous, err := s.client.Get(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("lookup previous refresh token: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" && previous != token {
			pipe.Del(ctx, s.tokenKey(previous))
		}
		pipe.Set(ctx, userKey, token, ttl)
		pipe.Set(ctx, s.tokenKey(token), username, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// Exists requires both keys to agree, so a token superseded by a later Save
// is reported absent even if a stale reverse key survived.
func (s *RedisRefreshStore) Exists(ctx context.Context, token string) (bool, error) {
	username, err := s.client.Get(ctx, s.tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	current, err := s.client.Get(ctx, s.userKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return current == token, nil
}

func (s *RedisRefreshStore) Get(ctx context.Context, username string) (string, error) {
	token, err := s.client.Get(ctx, s.userKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrRefreshNotFound
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// DeleteByToken watches the user key so a Save racing with the delete is
// never undone. The transaction is retried when the watched key changes.
func (s *RedisRefreshStore) DeleteByToken(ctx context.Context, token string) error {
	tokenKey := s.tokenKey(token)
	username, err := s.client.Get(ctx, tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	userKey := s.userKey(username)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, userKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if s.afterRead != nil {
			s.afterRead()
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, tokenKey)
			if current == token {
				pipe.Del(ctx, userKey)
			}
			return nil
		})
		return err
	}

	for i := 0; i < deleteMaxRetries; i++ {
		err = s.client.Watch(ctx, txf, userKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("delete refresh token: %w", err)
}

func (s *RedisRefreshStore) DeleteByUsername(ctx context.Context, username string) error {
	userKey := s.userKey(username)
	token, err := s.client.Get(ctx, userKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, userKey, s.tokenKey(token))
		return nil
	})
	return err
}
