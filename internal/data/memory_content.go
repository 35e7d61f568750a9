package data

import (
	"context"
	"sync"
	"time"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

// MemoryContentStore is an in-memory content resolver/cacher for tests and
// single-node development.
type MemoryContentStore struct {
	mu   sync.RWMutex
	refs map[string]model.ContentReference
}

// NewMemoryContentStore creates an empty in-memory content store.
func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{refs: make(map[string]model.ContentReference)}
}

var _ core.ContentResolver = (*MemoryContentStore)(nil)
var _ core.ContentCacher = (*MemoryContentStore)(nil)

// Cache stores a content reference by id. Entries never expire, so keepUntil
// is ignored.
func (s *MemoryContentStore) Cache(_ context.Context, ref model.ContentReference, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[ref.ID] = ref
	return nil
}

// Resolve returns the cached content reference, or NotFound.
func (s *MemoryContentStore) Resolve(_ context.Context, contentID string) (model.ContentReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[contentID]
	if !ok {
		return model.ContentReference{}, apperrors.NotFoundf("content not found: %s", contentID)
	}
	return ref, nil
}
