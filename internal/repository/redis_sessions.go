package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"steelcraft-site/internal/domain"
)

const (
	sessionKeyPrefix = "session:operator:"
	redisPingTimeout = 5 * time.Second
)

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// ConnectRedis creates a client and verifies it with a ping.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("repository: redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("repository: redis ping: %w", err)
	}
	return client, nil
}

// RedisSessions keeps operator sessions as JSON values, one key per operator.
type RedisSessions struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisSessions creates the store. A zero ttl keeps sessions until deleted.
func NewRedisSessions(client redis.Cmdable, ttl time.Duration) (*RedisSessions, error) {
	if client == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisSessions{client: client, ttl: ttl}, nil
}

func sessionKey(operatorID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(operatorID, 10)
}

func (r *RedisSessions) Get(ctx context.Context, operatorID int64) (domain.Session, bool, error) {
	raw, err := r.client.Get(ctx, sessionKey(operatorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("repository: GetSession: %w", err)
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Session{}, false, fmt.Errorf("repository: GetSession unmarshal: %w", err)
	}
	return s, true, nil
}

func (r *RedisSessions) Set(ctx context.Context, operatorID int64, s domain.Session) error {
	s.OperatorID = operatorID
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("repository: SetSession marshal: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(operatorID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("repository: SetSession: %w", err)
	}
	return nil
}

func (r *RedisSessions) Delete(ctx context.Context, operatorID int64) error {
	if err := r.client.Del(ctx, sessionKey(operatorID)).Err(); err != nil {
		return fmt.Errorf("repository: DeleteSession: %w", err)
	}
	return nil
}
