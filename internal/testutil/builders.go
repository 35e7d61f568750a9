package testutil

import (
	"encoding/json"
	"time"

	"github.com/crosspost-labs/publisher-go/internal/domain/model"
)

// SubmitRequestBuilder provides a fluent interface for building SubmitRequest
// objects for testing.
type SubmitRequestBuilder struct {
	req model.SubmitRequest
}

// NewSubmitRequest creates a SubmitRequestBuilder with sensible defaults: one
// ready content reference targeting twitter.
func NewSubmitRequest() *SubmitRequestBuilder {
	return &SubmitRequestBuilder{
		req: model.SubmitRequest{
			Content: model.ContentReference{
				ID:      "content-1",
				Payload: json.RawMessage(`{"text": "hello world"}`),
				State:   model.ContentStateReady,
			},
			Platforms: []model.Platform{model.PlatformTwitter},
			Priority:  50,
		},
	}
}

// WithContentID sets the content id.
func (b *SubmitRequestBuilder) WithContentID(id string) *SubmitRequestBuilder {
	b.req.Content.ID = id
	return b
}

// WithContentState sets the content state.
func (b *SubmitRequestBuilder) WithContentState(state model.ContentState) *SubmitRequestBuilder {
	b.req.Content.State = state
	return b
}

// WithPayloadString sets the content payload from a string.
func (b *SubmitRequestBuilder) WithPayloadString(payload string) *SubmitRequestBuilder {
	b.req.Content.Payload = json.RawMessage(payload)
	return b
}

// WithPlatforms sets the target platforms.
func (b *SubmitRequestBuilder) WithPlatforms(platforms ...model.Platform) *SubmitRequestBuilder {
	b.req.Platforms = platforms
	return b
}

// WithPriority sets the priority.
func (b *SubmitRequestBuilder) WithPriority(priority int) *SubmitRequestBuilder {
	b.req.Priority = priority
	return b
}

// WithScheduledAt sets the scheduled time.
func (b *SubmitRequestBuilder) WithScheduledAt(at time.Time) *SubmitRequestBuilder {
	b.req.ScheduledAt = &at
	return b
}

// WithMaxRetries sets an explicit retry budget. Zero disables retries.
func (b *SubmitRequestBuilder) WithMaxRetries(n int) *SubmitRequestBuilder {
	b.req.MaxRetries = &n
	return b
}

// Build returns the constructed request.
func (b *SubmitRequestBuilder) Build() model.SubmitRequest {
	return b.req
}

// JobBuilder provides a fluent interface for building PublishingJob objects
// for testing.
type JobBuilder struct {
	job model.PublishingJob
}

// NewJob creates a JobBuilder with sensible defaults.
func NewJob(jobID string) *JobBuilder {
	return &JobBuilder{
		job: model.PublishingJob{
			JobID:      jobID,
			ContentID:  "content-1",
			Platforms:  []model.Platform{model.PlatformTwitter},
			Priority:   50,
			MaxRetries: 3,
			Status:     model.JobStatusPending,
			CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Results:    map[model.Platform]model.PublishingResult{},
		},
	}
}

// WithPlatforms sets the target platforms.
func (b *JobBuilder) WithPlatforms(platforms ...model.Platform) *JobBuilder {
	b.job.Platforms = platforms
	return b
}

// WithStatus sets the job status.
func (b *JobBuilder) WithStatus(status model.JobStatus) *JobBuilder {
	b.job.Status = status
	return b
}

// WithContentID sets the content id.
func (b *JobBuilder) WithContentID(id string) *JobBuilder {
	b.job.ContentID = id
	return b
}

// WithResult records a platform result.
func (b *JobBuilder) WithResult(platform model.Platform, result model.PublishingResult) *JobBuilder {
	b.job.Results[platform] = result
	return b
}

// Build returns the constructed job.
func (b *JobBuilder) Build() *model.PublishingJob {
	return b.job.Clone()
}

// ReadyContent returns a publishable content reference with the given id.
func ReadyContent(id string) model.ContentReference {
	return model.ContentReference{
		ID:      id,
		Payload: json.RawMessage(`{"text": "hello world"}`),
		State:   model.ContentStateReady,
	}
}
