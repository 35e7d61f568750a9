package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

func TestStaticProvider(t *testing.T) {
	provider := NewStaticProvider(map[model.Platform]model.Credentials{
		model.PlatformTwitter:  {AccessToken: "token-1"},
		model.PlatformLinkedIn: {ClientID: "id-1", ClientSecret: "secret", TokenURL: "https://auth.example.com/token"},
		// Empty entries are dropped at construction.
		model.PlatformFacebook: {},
	})
	ctx := context.Background()

	t.Run("access token credentials", func(t *testing.T) {
		creds, err := provider.GetCredentials(ctx, model.PlatformTwitter)
		require.NoError(t, err)
		assert.Equal(t, "token-1", creds.AccessToken)
	})

	t.Run("client credentials", func(t *testing.T) {
		creds, err := provider.GetCredentials(ctx, model.PlatformLinkedIn)
		require.NoError(t, err)
		assert.Equal(t, "id-1", creds.ClientID)
	})

	t.Run("empty entry dropped", func(t *testing.T) {
		_, err := provider.GetCredentials(ctx, model.PlatformFacebook)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("unconfigured platform", func(t *testing.T) {
		_, err := provider.GetCredentials(ctx, model.PlatformInstagram)
		assert.True(t, apperrors.IsNotFound(err))
	})
}
