// Package credentials implements the CredentialProvider port over static
// configuration. Credentials are loaded once at startup; rotation means
// restarting the service.
package credentials

import (
	"context"

	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

// StaticProvider serves credentials from an in-memory map built from config.
type StaticProvider struct {
	creds map[model.Platform]model.Credentials
}

// NewStaticProvider creates a StaticProvider. Entries with empty credentials
// are dropped so lookups for unconfigured platforms fail loudly.
func NewStaticProvider(creds map[model.Platform]model.Credentials) *StaticProvider {
	m := make(map[model.Platform]model.Credentials, len(creds))
	for p, c := range creds {
		if c.Empty() {
			continue
		}
		m[p] = c
	}
	return &StaticProvider{creds: m}
}

// GetCredentials returns the configured credentials for the platform, or a
// NotFound error.
func (p *StaticProvider) GetCredentials(_ context.Context, platform model.Platform) (model.Credentials, error) {
	c, ok := p.creds[platform]
	if !ok {
		return model.Credentials{}, apperrors.NotFoundf("no credentials configured for platform %s", platform)
	}
	return c, nil
}
