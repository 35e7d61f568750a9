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

// LinkedInClient publishes posts on behalf of an organization or member URN.
type LinkedInClient struct {
	*baseClient
	authorURN string
}

// NewLinkedInClient creates a LinkedInClient posting as the given author URN.
func NewLinkedInClient(cfg ClientConfig, authorURN string, logger *slog.Logger) *LinkedInClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.linkedin.com"
	}
	return &LinkedInClient{
		baseClient: newBaseClient(model.PlatformLinkedIn, cfg, logger),
		authorURN:  authorURN,
	}
}

type linkedInPost struct {
	Author         string `json:"author"`
	Commentary     string `json:"commentary"`
	Visibility     string `json:"visibility"`
	LifecycleState string `json:"lifecycleState"`
}

// PublishContent creates a post for the configured author.
func (c *LinkedInClient) PublishContent(ctx context.Context, content model.ContentReference, _ model.PostingSchedule) (*core.PublishResponse, error) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content.Payload, &body); err != nil {
		return nil, apperrors.ContentValidation("content payload is not valid JSON: " + err.Error())
	}
	if body.Text == "" {
		return nil, apperrors.ContentValidation("linkedin post text is empty")
	}

	var resp struct {
		ID string `json:"id"`
	}
	post := linkedInPost{
		Author:         c.authorURN,
		Commentary:     body.Text,
		Visibility:     "PUBLIC",
		LifecycleState: "PUBLISHED",
	}
	if err := c.doJSON(ctx, http.MethodPost, "/rest/posts", post, &resp); err != nil {
		return nil, err
	}
	return &core.PublishResponse{
		PlatformPostID: resp.ID,
		PostURL:        "https://www.linkedin.com/feed/update/" + resp.ID,
	}, nil
}

// GetPostMetrics fetches social action counts for a post.
func (c *LinkedInClient) GetPostMetrics(ctx context.Context, platformPostID string) (map[string]int64, error) {
	var resp struct {
		LikesSummary struct {
			TotalLikes int64 `json:"totalLikes"`
		} `json:"likesSummary"`
		CommentsSummary struct {
			TotalComments int64 `json:"totalFirstLevelComments"`
		} `json:"commentsSummary"`
	}
	path := "/rest/socialActions/" + url.PathEscape(platformPostID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return map[string]int64{
		"likes":    resp.LikesSummary.TotalLikes,
		"comments": resp.CommentsSummary.TotalComments,
	}, nil
}

// DeletePost deletes a post.
func (c *LinkedInClient) DeletePost(ctx context.Context, platformPostID string) (bool, error) {
	if err := c.doJSON(ctx, http.MethodDelete, "/rest/posts/"+url.PathEscape(platformPostID), nil, nil); err != nil {
		return false, err
	}
	return true, nil
}

// UpdatePost edits the commentary of a post.
func (c *LinkedInClient) UpdatePost(ctx context.Context, platformPostID string, updates map[string]string) (bool, error) {
	text, ok := updates["text"]
	if !ok || text == "" {
		return false, apperrors.InvalidRequest("linkedin post update requires a text field")
	}
	patch := map[string]any{
		"patch": map[string]any{
			"$set": map[string]string{"commentary": text},
		},
	}
	if err := c.doJSON(ctx, http.MethodPost, "/rest/posts/"+url.PathEscape(platformPostID), patch, nil); err != nil {
		return false, err
	}
	return true, nil
}
