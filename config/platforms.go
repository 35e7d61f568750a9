package config

import (
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
)

// PlatformCredentials holds one platform's auth and endpoint settings.
type PlatformCredentials struct {
	Enabled           bool    `env:"ENABLED"             envDefault:"false"`
	ClientID          string  `env:"CLIENT_ID"           envDefault:""`
	ClientSecret      string  `env:"CLIENT_SECRET"       envDefault:""`
	AccessToken       string  `env:"ACCESS_TOKEN"        envDefault:""`
	TokenURL          string  `env:"TOKEN_URL"           envDefault:""`
	BaseURL           string  `env:"BASE_URL"            envDefault:""`
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" envDefault:"0"`
}

// Credentials converts the config entry to the domain credentials type.
func (c PlatformCredentials) Credentials() model.Credentials {
	return model.Credentials{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		AccessToken:  c.AccessToken,
		TokenURL:     c.TokenURL,
	}
}

// PlatformsConfig holds per-platform settings. Disabled platforms get no
// client and submissions targeting them fail as platform_unavailable.
type PlatformsConfig struct {
	Twitter   PlatformCredentials `envPrefix:"TWITTER_"`
	Facebook  PlatformCredentials `envPrefix:"FACEBOOK_"`
	LinkedIn  PlatformCredentials `envPrefix:"LINKEDIN_"`
	Instagram PlatformCredentials `envPrefix:"INSTAGRAM_"`

	// FacebookPageID is the page posts are published to.
	FacebookPageID string `env:"FACEBOOK_PAGE_ID" envDefault:""`
	// LinkedInAuthorURN is the member or organization URN posts are
	// attributed to.
	LinkedInAuthorURN string `env:"LINKEDIN_AUTHOR_URN" envDefault:""`
	// InstagramAccountID is the business account media is published to.
	InstagramAccountID string `env:"INSTAGRAM_ACCOUNT_ID" envDefault:""`
}

// CredentialMap builds the credential lookup for enabled platforms.
func (c PlatformsConfig) CredentialMap() map[model.Platform]model.Credentials {
	out := make(map[model.Platform]model.Credentials, 4)
	if c.Twitter.Enabled {
		out[model.PlatformTwitter] = c.Twitter.Credentials()
	}
	if c.Facebook.Enabled {
		out[model.PlatformFacebook] = c.Facebook.Credentials()
	}
	if c.LinkedIn.Enabled {
		out[model.PlatformLinkedIn] = c.LinkedIn.Credentials()
	}
	if c.Instagram.Enabled {
		out[model.PlatformInstagram] = c.Instagram.Credentials()
	}
	return out
}
