package testutil

import (
	"context"
	"sync"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	"github.com/crosspost-labs/publisher-go/internal/observability/notify"
)

// PublishOutcome scripts one PublishContent call of a FakePlatformClient.
type PublishOutcome struct {
	Response *core.PublishResponse
	Err      error
}

// FakePlatformClient is a scriptable PlatformClient for tests. Outcomes are
// consumed in order; once the script runs out, the last outcome repeats.
// Safe for concurrent use.
type FakePlatformClient struct {
	PlatformName model.Platform
	AuthErr      error
	MetricsMap   map[string]int64
	RateLimit    core.RateLimitState

	mu            sync.Mutex
	authenticated bool
	outcomes      []PublishOutcome
	calls         []model.ContentReference
}

// NewFakePlatformClient creates a fake client for the given platform.
func NewFakePlatformClient(platform model.Platform, outcomes ...PublishOutcome) *FakePlatformClient {
	return &FakePlatformClient{PlatformName: platform, outcomes: outcomes}
}

// Platform returns the scripted platform.
func (f *FakePlatformClient) Platform() model.Platform { return f.PlatformName }

// Authenticated reports whether Authenticate has succeeded.
func (f *FakePlatformClient) Authenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

// Authenticate succeeds unless AuthErr is set.
func (f *FakePlatformClient) Authenticate(_ context.Context, _ model.Credentials) error {
	if f.AuthErr != nil {
		return f.AuthErr
	}
	f.mu.Lock()
	f.authenticated = true
	f.mu.Unlock()
	return nil
}

// PublishContent consumes the next scripted outcome.
func (f *FakePlatformClient) PublishContent(_ context.Context, content model.ContentReference, _ model.PostingSchedule) (*core.PublishResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, content)
	var outcome PublishOutcome
	switch {
	case len(f.outcomes) == 0:
		outcome = PublishOutcome{Response: &core.PublishResponse{PlatformPostID: "post-1"}}
	case len(f.outcomes) == 1:
		outcome = f.outcomes[0]
	default:
		outcome = f.outcomes[0]
		f.outcomes = f.outcomes[1:]
	}
	f.mu.Unlock()
	return outcome.Response, outcome.Err
}

// PublishCalls returns the content references passed to PublishContent.
func (f *FakePlatformClient) PublishCalls() []model.ContentReference {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ContentReference(nil), f.calls...)
}

// GetPostMetrics returns the scripted metrics map.
func (f *FakePlatformClient) GetPostMetrics(_ context.Context, _ string) (map[string]int64, error) {
	return f.MetricsMap, nil
}

// DeletePost always succeeds.
func (f *FakePlatformClient) DeletePost(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// UpdatePost always succeeds.
func (f *FakePlatformClient) UpdatePost(_ context.Context, _ string, _ map[string]string) (bool, error) {
	return true, nil
}

// RateLimitState returns the scripted window.
func (f *FakePlatformClient) RateLimitState() core.RateLimitState { return f.RateLimit }

var _ core.PlatformClient = (*FakePlatformClient)(nil)

// StaticCredentials is a CredentialProvider returning the same credentials
// for every platform.
type StaticCredentials struct {
	Creds model.Credentials
	Err   error
}

// GetCredentials returns the scripted credentials or error.
func (s StaticCredentials) GetCredentials(_ context.Context, _ model.Platform) (model.Credentials, error) {
	if s.Err != nil {
		return model.Credentials{}, s.Err
	}
	return s.Creds, nil
}

// CaptureSink is a notify.Sink that records every event it receives.
type CaptureSink struct {
	mu     sync.Mutex
	events []notify.StatusChangeEvent
}

// SendStatusChange records the event.
func (c *CaptureSink) SendStatusChange(_ context.Context, event notify.StatusChangeEvent) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events.
func (c *CaptureSink) Events() []notify.StatusChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.StatusChangeEvent(nil), c.events...)
}

var _ notify.Sink = (*CaptureSink)(nil)
