package model

import (
	"encoding/json"
	"errors"
)

// ContentState represents the authoring state of a piece of content.
type ContentState string

const (
	// ContentStateDraft indicates content still being authored.
	ContentStateDraft ContentState = "draft"
	// ContentStateReview indicates content pending editorial review.
	ContentStateReview ContentState = "review"
	// ContentStateReady indicates content approved for publishing.
	ContentStateReady ContentState = "ready"
	// ContentStateArchived indicates content withdrawn from circulation.
	ContentStateArchived ContentState = "archived"
)

// ContentReference is an opaque handle to externally-owned content: an id plus
// a renderable payload. It is immutable once referenced by a job.
type ContentReference struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
	State   ContentState    `json:"state"`
}

// Publishable reports whether the content may be handed to platform clients.
func (c ContentReference) Publishable() bool {
	return c.State == ContentStateReady && len(c.Payload) > 0
}

// Validate checks structural requirements of the reference.
func (c ContentReference) Validate() error {
	if c.ID == "" {
		return errors.New("content id is required")
	}
	if len(c.Payload) == 0 {
		return errors.New("content payload is required")
	}
	return nil
}
