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

// InstagramClient publishes media posts through the Graph API content
// publishing flow: create a media container, then publish it.
type InstagramClient struct {
	*baseClient
	accountID string
}

// NewInstagramClient creates an InstagramClient for the given business
// account.
func NewInstagramClient(cfg ClientConfig, accountID string, logger *slog.Logger) *InstagramClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com/v19.0"
	}
	return &InstagramClient{
		baseClient: newBaseClient(model.PlatformInstagram, cfg, logger),
		accountID:  accountID,
	}
}

// PublishContent creates and publishes a media container. Instagram requires
// an image; text-only payloads are rejected as content validation failures.
func (c *InstagramClient) PublishContent(ctx context.Context, content model.ContentReference, _ model.PostingSchedule) (*core.PublishResponse, error) {
	var body struct {
		Text      string   `json:"text"`
		MediaURLs []string `json:"media_urls"`
	}
	if err := json.Unmarshal(content.Payload, &body); err != nil {
		return nil, apperrors.ContentValidation("content payload is not valid JSON: " + err.Error())
	}
	if len(body.MediaURLs) == 0 {
		return nil, apperrors.ContentValidation("instagram requires at least one media url")
	}

	var container struct {
		ID string `json:"id"`
	}
	create := map[string]string{
		"image_url": body.MediaURLs[0],
		"caption":   body.Text,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/"+c.accountID+"/media", create, &container); err != nil {
		return nil, err
	}

	var resp struct {
		ID string `json:"id"`
	}
	publish := map[string]string{"creation_id": container.ID}
	if err := c.doJSON(ctx, http.MethodPost, "/"+c.accountID+"/media_publish", publish, &resp); err != nil {
		return nil, err
	}
	return &core.PublishResponse{
		PlatformPostID: resp.ID,
		PostURL:        "https://www.instagram.com/p/" + resp.ID,
	}, nil
}

// GetPostMetrics fetches media insights for a published post.
func (c *InstagramClient) GetPostMetrics(ctx context.Context, platformPostID string) (map[string]int64, error) {
	var resp struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	path := "/" + platformPostID + "/insights?metric=likes,comments,reach"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(resp.Data))
	for _, m := range resp.Data {
		if len(m.Values) > 0 {
			out[m.Name] = m.Values[0].Value
		}
	}
	return out, nil
}

// DeletePost deletes a media post.
func (c *InstagramClient) DeletePost(ctx context.Context, platformPostID string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/"+platformPostID, nil, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// UpdatePost is unsupported; published media cannot be edited.
func (c *InstagramClient) UpdatePost(context.Context, string, map[string]string) (bool, error) {
	return false, apperrors.InvalidRequest("instagram does not support post editing")
}
