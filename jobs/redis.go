package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storyreel/config"
)

// unlockScript deletes the lock only while the caller still owns it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps job records as JSON strings with a TTL and locks as
// SET NX keys.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects and verifies the server with a PING.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "storyreel"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: config.JobTTL}, nil
}

// Close closes the underlying Redis client
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) jobKey(id string) string {
	return r.prefix + ":job:" + id
}

func (r *RedisStore) lockKey(outputPath string) string {
	return r.prefix + ":lock:" + lockName(outputPath)
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	raw, err := r.client.Get(ctx, r.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &j, nil
}

func (r *RedisStore) Put(ctx context.Context, job *Job) error {
	j := *job
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = time.Now()
	}
	raw, err := json.Marshal(j)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.jobKey(j.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("put job %s: %w", j.ID, err)
	}
	return nil
}

func (r *RedisStore) Lock(ctx context.Context, outputPath, owner string, ttl time.Duration) error {
	key := r.lockKey(outputPath)
	ok, err := r.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return fmt.Errorf("lock %s: %w", outputPath, err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

func (r *RedisStore) Unlock(ctx context.Context, outputPath, owner string) error {
	if err := unlockScript.Run(ctx, r.client, []string{r.lockKey(outputPath)}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("unlock %s: %w", outputPath, err)
	}
	return nil
}
