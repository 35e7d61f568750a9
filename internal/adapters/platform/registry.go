package platform

import (
	"sort"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
)

// Registry is a fixed map of platform clients built at startup.
type Registry struct {
	clients map[model.Platform]core.PlatformClient
}

// NewRegistry creates a Registry over the given clients. Later clients for
// the same platform replace earlier ones.
func NewRegistry(clients ...core.PlatformClient) *Registry {
	m := make(map[model.Platform]core.PlatformClient, len(clients))
	for _, c := range clients {
		m[c.Platform()] = c
	}
	return &Registry{clients: m}
}

// Resolve returns the client registered for the platform.
func (r *Registry) Resolve(platform model.Platform) (core.PlatformClient, bool) {
	c, ok := r.clients[platform]
	return c, ok
}

// Platforms lists the registered platforms in stable order.
func (r *Registry) Platforms() []model.Platform {
	out := make([]model.Platform, 0, len(r.clients))
	for p := range r.clients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
