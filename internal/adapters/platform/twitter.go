package platform

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

const twitterMaxTextLen = 280

// TwitterClient publishes tweets through the v2 API.
type TwitterClient struct {
	*baseClient
}

// NewTwitterClient creates a TwitterClient.
func NewTwitterClient(cfg ClientConfig, logger *slog.Logger) *TwitterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twitter.com"
	}
	return &TwitterClient{baseClient: newBaseClient(model.PlatformTwitter, cfg, logger)}
}

type tweetPayload struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// PublishContent posts the content payload as a tweet.
func (c *TwitterClient) PublishContent(ctx context.Context, content model.ContentReference, _ model.PostingSchedule) (*core.PublishResponse, error) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content.Payload, &body); err != nil {
		return nil, apperrors.ContentValidation("content payload is not valid JSON: " + err.Error())
	}
	if body.Text == "" {
		return nil, apperrors.ContentValidation("tweet text is empty")
	}
	if len([]rune(body.Text)) > twitterMaxTextLen {
		return nil, apperrors.ContentValidation("tweet text exceeds 280 characters")
	}

	var resp tweetResponse
	if err := c.doJSON(ctx, http.MethodPost, "/2/tweets", tweetPayload{Text: body.Text}, &resp); err != nil {
		return nil, err
	}
	return &core.PublishResponse{
		PlatformPostID: resp.Data.ID,
		PostURL:        "https://twitter.com/i/status/" + resp.Data.ID,
	}, nil
}

// GetPostMetrics fetches public engagement metrics for a tweet.
func (c *TwitterClient) GetPostMetrics(ctx context.Context, platformPostID string) (map[string]int64, error) {
	var resp struct {
		Data struct {
			PublicMetrics map[string]int64 `json:"public_metrics"`
		} `json:"data"`
	}
	path := "/2/tweets/" + platformPostID + "?tweet.fields=public_metrics"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.PublicMetrics, nil
}

// DeletePost deletes a tweet.
func (c *TwitterClient) DeletePost(ctx context.Context, platformPostID string) (bool, error) {
	var resp struct {
		Data struct {
			Deleted bool `json:"deleted"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/2/tweets/"+platformPostID, nil, &resp); err != nil {
		return false, err
	}
	return resp.Data.Deleted, nil
}

// UpdatePost is unsupported; tweets cannot be edited through this API tier.
func (c *TwitterClient) UpdatePost(context.Context, string, map[string]string) (bool, error) {
	return false, apperrors.InvalidRequest("twitter does not support post editing")
}
