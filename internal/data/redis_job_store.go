package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

const (
	jobKeyPrefix = "publisher:job:"

	// maxUpdateRetries bounds optimistic transaction retries under contention.
	maxUpdateRetries = 16
)

// RedisJobStore implements the JobStore port on Redis. Snapshots are stored as
// JSON values; terminal jobs get a TTL so Redis expires them natively. Updates
// use WATCH/MULTI optimistic transactions, which makes read-modify-write
// atomic per job id across processes.
type RedisJobStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

// RedisJobStoreOptions configures a RedisJobStore.
type RedisJobStoreOptions struct {
	Client       redis.UniversalClient
	CompletedTTL time.Duration // retention for terminal jobs; defaults to 24h
}

// NewRedisJobStore creates a RedisJobStore with the given client.
func NewRedisJobStore(opts RedisJobStoreOptions) *RedisJobStore {
	if opts.CompletedTTL <= 0 {
		opts.CompletedTTL = 24 * time.Hour
	}
	return &RedisJobStore{client: opts.Client, retention: opts.CompletedTTL}
}

var _ core.JobStore = (*RedisJobStore)(nil)

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}

// Put writes the initial job snapshot, failing on duplicate ids.
func (s *RedisJobStore) Put(ctx context.Context, job *model.PublishingJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, jobKey(job.JobID), b, s.ttlFor(job)).Result()
	if err != nil {
		return fmt.Errorf("redis set job: %w", err)
	}
	if !ok {
		return apperrors.Conflict("job already exists: " + job.JobID)
	}
	return nil
}

// Get returns a snapshot of the job, or NotFound.
func (s *RedisJobStore) Get(ctx context.Context, jobID string) (*model.PublishingJob, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFoundf("job not found: %s", jobID)
		}
		return nil, fmt.Errorf("redis get job: %w", err)
	}

	var job model.PublishingJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

// Update applies fn inside a WATCH transaction, retrying on concurrent writes.
func (s *RedisJobStore) Update(
	ctx context.Context,
	jobID string,
	fn func(*model.PublishingJob) error,
) (*model.PublishingJob, error) {
	key := jobKey(jobID)
	var updated *model.PublishingJob

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.NotFoundf("job not found: %s", jobID)
			}
			return fmt.Errorf("redis get job: %w", err)
		}

		var job model.PublishingJob
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("unmarshal job %s: %w", jobID, err)
		}
		if err := fn(&job); err != nil {
			return err
		}

		b, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, s.ttlFor(&job))
			return nil
		})
		if err != nil {
			return err
		}
		updated = &job
		return nil
	}

	for range maxUpdateRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			// Another writer touched the key between read and write; retry.
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, apperrors.Internalf("job update contention exceeded retries: %s", jobID)
}

// Health checks the Redis connection.
func (s *RedisJobStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisJobStore) ttlFor(job *model.PublishingJob) time.Duration {
	if job.Terminal() {
		return s.retention
	}
	return 0
}
