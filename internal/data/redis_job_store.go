package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
)

const (
	defaultRedisJobPrefix = "job:"
	redisScanBatchSize    = 100
)

// RedisJobStoreConfig holds settings for the Redis-backed job store.
type RedisJobStoreConfig struct {
	// Prefix namespaces job keys. Defaults to "job:".
	Prefix string
	// Retention is the TTL applied to every record so the store cleans
	// itself up even when the sweeper never runs. Zero means no expiry.
	Retention time.Duration
}

// RedisJobStore persists job records as JSON documents in Redis. Records are
// written with a retention TTL; DeleteTerminalBefore exists for parity with
// the other backends and removes terminal records ahead of their expiry.
type RedisJobStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisJobStore creates a job store backed by the given Redis client.
func NewRedisJobStore(client redis.UniversalClient, cfg RedisJobStoreConfig) *RedisJobStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisJobPrefix
	}
	return &RedisJobStore{
		client:    client,
		prefix:    prefix,
		retention: cfg.Retention,
	}
}

// Insert adds a new job record. Returns ErrJobExists when the id is taken.
func (s *RedisJobStore) Insert(ctx context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return errors.New("job id is required")
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	status, err := s.client.SetArgs(ctx, s.key(job.ID), data, redis.SetArgs{
		Mode: "NX",
		TTL:  s.retention,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrJobExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	if status != "OK" {
		return fmt.Errorf("insert job: unexpected status %q", status)
	}
	return nil
}

// Get returns the job with the given id.
func (s *RedisJobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	return s.load(ctx, s.key(id))
}

// Mutate loads the record, applies fn, and writes the result back preserving
// the remaining TTL. Every job has a single mutating owner, so the
// read-modify-write is not guarded by a distributed lock.
func (s *RedisJobStore) Mutate(ctx context.Context, id string, fn func(*model.Job) error) (*model.Job, error) {
	key := s.key(id)

	job, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := fn(job); err != nil {
		return nil, err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, key, data, redis.KeepTTL).Err(); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return job, nil
}

// DeleteTerminalBefore scans the job keyspace and removes terminal records
// completed before the cutoff.
func (s *RedisJobStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64

	iter := s.client.Scan(ctx, 0, s.prefix+"*", redisScanBatchSize).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		job, err := s.load(ctx, key)
		if err != nil {
			// Expired between SCAN and GET.
			if errors.Is(err, ErrJobNotFound) {
				continue
			}
			return removed, err
		}
		if !job.Status.Terminal() || job.CompletedAt == nil || !job.CompletedAt.Before(cutoff) {
			continue
		}

		deleted, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return removed, fmt.Errorf("delete job: %w", err)
		}
		removed += deleted
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan jobs: %w", err)
	}
	return removed, nil
}

// Health reports whether Redis is reachable.
func (s *RedisJobStore) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *RedisJobStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisJobStore) load(ctx context.Context, key string) (*model.Job, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

var _ core.JobStore = (*RedisJobStore)(nil)
