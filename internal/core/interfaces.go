// Package core contains the port definitions (hexagonal architecture) of the
// publishing scheduler. Services depend on these interfaces, never on the
// concrete Redis/Postgres/HTTP implementations behind them.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/crosspost-labs/publisher-go/internal/domain/model"
)

// ErrAbortUpdate signals from an update closure that the job must not be
// written. Stores return it unchanged so callers can distinguish "discarded"
// from a storage failure. Used to drop late results landing on terminal jobs.
var ErrAbortUpdate = errors.New("job update aborted")

// JobStore is keyed, TTL-bounded storage of PublishingJob snapshots. Every
// call is atomic at the granularity of one job id; terminal jobs expire after
// the store's configured retention.
type JobStore interface {
	// Put writes the initial job snapshot. Fails with a Conflict error if the
	// job id already exists.
	Put(ctx context.Context, job *model.PublishingJob) error
	// Get returns a snapshot of the job, or a NotFound error.
	Get(ctx context.Context, jobID string) (*model.PublishingJob, error)
	// Update applies fn to the current snapshot under per-job atomicity and
	// persists the outcome. If fn returns an error the write is skipped and the
	// error is propagated (ErrAbortUpdate included).
	Update(ctx context.Context, jobID string, fn func(*model.PublishingJob) error) (*model.PublishingJob, error)
}

// ExpiredJobDeleter is an optional extension implemented by stores that need
// an external reaper for terminal-job retention (Redis expires natively).
type ExpiredJobDeleter interface {
	// DeleteExpired removes terminal jobs completed before cutoff, up to
	// batchSize rows per call. Returns the number of jobs deleted.
	DeleteExpired(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// QueuedSchedule pairs a schedule entry with its owning job id.
type QueuedSchedule struct {
	JobID    string                `json:"job_id"`
	Schedule model.PostingSchedule `json:"schedule"`
}

// ScheduleQueue is the time-ordered queue of pending platform work. Ordering
// is ascending scheduled time, then descending priority, then insertion order.
// DequeueDue must pop atomically: an entry is never returned to two concurrent
// consumers.
type ScheduleQueue interface {
	Enqueue(ctx context.Context, jobID string, sched model.PostingSchedule) error
	// DequeueDue atomically removes and returns up to limit entries whose
	// scheduled time is <= now.
	DequeueDue(ctx context.Context, now time.Time, limit int) ([]QueuedSchedule, error)
	// Remove deletes pending entries for the job. An empty platform removes
	// entries for every platform of the job.
	Remove(ctx context.Context, jobID string, platform model.Platform) error
	Depth(ctx context.Context) (int, error)
}

// PublishResponse is the platform's answer to a successful publish call.
type PublishResponse struct {
	PlatformPostID string
	PostURL        string
}

// RateLimitState reports a client's current rate-limit window.
type RateLimitState struct {
	Remaining int
	ResetAt   time.Time
}

// PlatformClient is the per-destination capability set. One implementation
// exists per platform; all calls may block on network I/O and honor ctx.
type PlatformClient interface {
	Platform() model.Platform
	Authenticated() bool
	Authenticate(ctx context.Context, creds model.Credentials) error
	PublishContent(ctx context.Context, content model.ContentReference, sched model.PostingSchedule) (*PublishResponse, error)
	GetPostMetrics(ctx context.Context, platformPostID string) (map[string]int64, error)
	DeletePost(ctx context.Context, platformPostID string) (bool, error)
	UpdatePost(ctx context.Context, platformPostID string, updates map[string]string) (bool, error)
	RateLimitState() RateLimitState
}

// ClientRegistry resolves platform clients from the closed Platform set.
type ClientRegistry interface {
	Resolve(platform model.Platform) (PlatformClient, bool)
	Platforms() []model.Platform
}

// CredentialProvider looks up credentials for a platform. Returns a NotFound
// error when no credentials are configured.
type CredentialProvider interface {
	GetCredentials(ctx context.Context, platform model.Platform) (model.Credentials, error)
}

// ContentResolver resolves a content reference by id for deferred (queued)
// dispatch, where the original submit-time reference is no longer in hand.
type ContentResolver interface {
	Resolve(ctx context.Context, contentID string) (model.ContentReference, error)
}

// ContentCacher stores a content reference so the queue dispatcher loop can
// resolve it later. keepUntil is the latest time a dispatch may still need
// the entry (zero for immediate dispatch); implementations retain it at
// least that long plus their retry horizon. Mirrors the resolver;
// implementations typically do both.
type ContentCacher interface {
	Cache(ctx context.Context, ref model.ContentReference, keepUntil time.Time) error
}
