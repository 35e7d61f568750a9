package platform

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

// FacebookClient publishes page posts through the Graph API.
type FacebookClient struct {
	*baseClient
	pageID string
}

// NewFacebookClient creates a FacebookClient publishing to the given page.
func NewFacebookClient(cfg ClientConfig, pageID string, logger *slog.Logger) *FacebookClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com/v19.0"
	}
	return &FacebookClient{
		baseClient: newBaseClient(model.PlatformFacebook, cfg, logger),
		pageID:     pageID,
	}
}

type facebookPost struct {
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// PublishContent posts the content payload to the page feed.
func (c *FacebookClient) PublishContent(ctx context.Context, content model.ContentReference, _ model.PostingSchedule) (*core.PublishResponse, error) {
	var body struct {
		Text string `json:"text"`
		Link string `json:"link"`
	}
	if err := json.Unmarshal(content.Payload, &body); err != nil {
		return nil, apperrors.ContentValidation("content payload is not valid JSON: " + err.Error())
	}
	if body.Text == "" && body.Link == "" {
		return nil, apperrors.ContentValidation("facebook post needs text or a link")
	}

	var resp struct {
		ID string `json:"id"`
	}
	path := "/" + c.pageID + "/feed"
	if err := c.doJSON(ctx, http.MethodPost, path, facebookPost{Message: body.Text, Link: body.Link}, &resp); err != nil {
		return nil, err
	}
	return &core.PublishResponse{
		PlatformPostID: resp.ID,
		PostURL:        "https://www.facebook.com/" + resp.ID,
	}, nil
}

// GetPostMetrics fetches like, comment, and share counts for a post.
func (c *FacebookClient) GetPostMetrics(ctx context.Context, platformPostID string) (map[string]int64, error) {
	type countSummary struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	}
	var resp struct {
		Likes    countSummary `json:"likes"`
		Comments countSummary `json:"comments"`
		Shares   struct {
			Count int64 `json:"count"`
		} `json:"shares"`
	}
	path := "/" + platformPostID + "?fields=" + url.QueryEscape("likes.summary(true),comments.summary(true),shares")
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return map[string]int64{
		"likes":    resp.Likes.Summary.TotalCount,
		"comments": resp.Comments.Summary.TotalCount,
		"shares":   resp.Shares.Count,
	}, nil
}

// DeletePost deletes a page post.
func (c *FacebookClient) DeletePost(ctx context.Context, platformPostID string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/"+platformPostID, nil, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// UpdatePost edits the message of a page post.
func (c *FacebookClient) UpdatePost(ctx context.Context, platformPostID string, updates map[string]string) (bool, error) {
	message, ok := updates["text"]
	if !ok || message == "" {
		return false, apperrors.InvalidRequest("facebook post update requires a text field")
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/"+platformPostID, facebookPost{Message: message}, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}
