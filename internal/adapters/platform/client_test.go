package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

func authedTwitterClient(t *testing.T, handler http.Handler) *TwitterClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewTwitterClient(ClientConfig{BaseURL: srv.URL}, nil)
	require.NoError(t, c.Authenticate(context.Background(), model.Credentials{AccessToken: "token-1"}))
	return c
}

func readyContent(payload string) model.ContentReference {
	return model.ContentReference{
		ID:      "content-1",
		Payload: json.RawMessage(payload),
		State:   model.ContentStateReady,
	}
}

func TestPublishContent(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	var gotBody tweetPayload
	c := authedTwitterClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data": {"id": "tw-123", "text": "hello"}}`))
	}))

	resp, err := c.PublishContent(context.Background(), readyContent(`{"text": "hello"}`), model.PostingSchedule{})
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/2/tweets", gotPath)
	assert.Equal(t, "hello", gotBody.Text)
	assert.Equal(t, "tw-123", resp.PlatformPostID)
	assert.Equal(t, "https://twitter.com/i/status/tw-123", resp.PostURL)
}

func TestPublishContentWithoutAuthentication(t *testing.T) {
	c := NewTwitterClient(ClientConfig{BaseURL: "http://unused.invalid"}, nil)
	assert.False(t, c.Authenticated())

	_, err := c.PublishContent(context.Background(), readyContent(`{"text": "hello"}`), model.PostingSchedule{})
	assert.True(t, apperrors.IsAuthentication(err))
}

func TestPublishContentValidation(t *testing.T) {
	// The handler must never be reached; validation happens before the request.
	c := authedTwitterClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("unexpected request for invalid content")
		w.WriteHeader(http.StatusInternalServerError)
	}))

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `not json`},
		{name: "empty text", payload: `{"text": ""}`},
		{name: "too long", payload: `{"text": "` + strings.Repeat("a", 281) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.PublishContent(context.Background(), readyContent(tt.payload), model.PostingSchedule{})
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeContentValidation, apperrors.GetCode(err))
		})
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		code   apperrors.ErrorCode
	}{
		{status: http.StatusUnauthorized, code: apperrors.ErrCodeAuthentication},
		{status: http.StatusForbidden, code: apperrors.ErrCodeAuthentication},
		{status: http.StatusTooManyRequests, code: apperrors.ErrCodeRateLimit},
		{status: http.StatusBadRequest, code: apperrors.ErrCodeContentValidation},
		{status: http.StatusUnprocessableEntity, code: apperrors.ErrCodeContentValidation},
		{status: http.StatusNotFound, code: apperrors.ErrCodeNotFound},
		{status: http.StatusInternalServerError, code: apperrors.ErrCodeAPIError},
		{status: http.StatusBadGateway, code: apperrors.ErrCodeAPIError},
		{status: http.StatusTeapot, code: apperrors.ErrCodeAPIError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := authedTwitterClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": "nope"}`))
			}))

			_, err := c.PublishContent(context.Background(), readyContent(`{"text": "hello"}`), model.PostingSchedule{})
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
			assert.Contains(t, err.Error(), "twitter returned")
		})
	}
}

func TestRateLimitWindowCapture(t *testing.T) {
	c := authedTwitterClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Rate-Limit-Remaining", "0")
		w.Header().Set("X-Rate-Limit-Reset", "1750000000")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.PublishContent(context.Background(), readyContent(`{"text": "hello"}`), model.PostingSchedule{})
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimit(err))

	state := c.RateLimitState()
	assert.Equal(t, 0, state.Remaining)
	assert.Equal(t, time.Unix(1750000000, 0), state.ResetAt)
}

func TestGetPostMetrics(t *testing.T) {
	c := authedTwitterClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/tw-123", r.URL.Path)
		assert.Equal(t, "public_metrics", r.URL.Query().Get("tweet.fields"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"public_metrics": {"like_count": 7, "retweet_count": 2}}}`))
	}))

	metrics, err := c.GetPostMetrics(context.Background(), "tw-123")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"like_count": 7, "retweet_count": 2}, metrics)
}

func TestDeletePost(t *testing.T) {
	c := authedTwitterClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/2/tweets/tw-123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"deleted": true}}`))
	}))

	deleted, err := c.DeletePost(context.Background(), "tw-123")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestUpdatePostUnsupported(t *testing.T) {
	c := NewTwitterClient(ClientConfig{}, nil)
	_, err := c.UpdatePost(context.Background(), "tw-123", map[string]string{"text": "edited"})
	assert.True(t, apperrors.IsInvalidRequest(err))
}

func TestAuthenticateRejectsEmptyCredentials(t *testing.T) {
	c := NewTwitterClient(ClientConfig{}, nil)
	err := c.Authenticate(context.Background(), model.Credentials{})
	assert.True(t, apperrors.IsAuthentication(err))
	assert.False(t, c.Authenticated())
}

func TestAuthenticateClientCredentials(t *testing.T) {
	tokenCalls := 0
	var apiAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			tokenCalls++
			require.NoError(t, r.ParseForm())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token": "cc-token", "token_type": "Bearer", "expires_in": 3600}`))
		case "/2/tweets":
			apiAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data": {"id": "tw-9"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	c := NewTwitterClient(ClientConfig{BaseURL: srv.URL}, nil)
	err := c.Authenticate(context.Background(), model.Credentials{
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		TokenURL:     srv.URL + "/oauth2/token",
	})
	require.NoError(t, err)
	// The token is exchanged eagerly so bad credentials fail fast.
	assert.Equal(t, 1, tokenCalls)
	assert.True(t, c.Authenticated())

	_, err = c.PublishContent(context.Background(), readyContent(`{"text": "hi"}`), model.PostingSchedule{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer cc-token", apiAuth)
}

func TestAuthenticateBadClientCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid_client"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewTwitterClient(ClientConfig{BaseURL: srv.URL}, nil)
	err := c.Authenticate(context.Background(), model.Credentials{
		ClientID:     "id-1",
		ClientSecret: "wrong",
		TokenURL:     srv.URL + "/oauth2/token",
	})
	assert.True(t, apperrors.IsAuthentication(err))
	assert.False(t, c.Authenticated())
}
