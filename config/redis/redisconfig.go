package redisUtil

import (
	"context"
	"errors"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/config/toml"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var Redis *RedisClient

// unlockScript deletes the key only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisClient extends the client and has its own functions
type RedisClient struct {
	*redis.Client
}

// Initialize the Redis client
func NewRedisClient(cfg toml.RedisConfig) error {
	if Redis != nil {
		return nil
	}
	if len(cfg.Urls) == 0 {
		return errors.New("redis: no url configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Urls[0],
		Password: cfg.Password,
		DB:       0,
		PoolSize: 10, // Connection pool size
		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,

		IdleCheckFrequency: 60 * time.Second,
		IdleTimeout:        5 * time.Minute,

		// Retry strategy for command execution failures
		MaxRetries:      0,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,

		OnConnect: func(ctx context.Context, conn *redis.Conn) error {
			log.Logger.Debug("redis connection created")
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return err
	}
	Redis = &RedisClient{client}
	log.Logger.Info("redis connected", zap.String("addr", cfg.Urls[0]))
	return nil
}

// Lock takes key for ttl when nobody holds it.
func (redis *RedisClient) Lock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return redis.SetNX(ctx, key, token, ttl).Result()
}

// Unlock releases key if token still owns it.
func (redis *RedisClient) Unlock(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, redis.Client, []string{key}, token).Err()
}

// Close the Redis client
func (redis *RedisClient) Close() {
	if redis.Client != nil {
		redis.Client.Close()
	}
}

// Get the Redis client; if the client is not initialized
// create the Redis client
func GetRedisClient() (*RedisClient, error) {
	if Redis == nil {
		if err := NewRedisClient(toml.GetConfig().Redis); err != nil {
			return nil, err
		}
	}
	return Redis, nil
}
