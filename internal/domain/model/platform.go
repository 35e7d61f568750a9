// Package model defines the core data types of the publishing scheduler.
package model

import (
	"fmt"
	"strings"
)

// Platform identifies a publishing destination.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Platform string

const (
	// PlatformTwitter targets the Twitter/X API.
	PlatformTwitter Platform = "twitter"
	// PlatformFacebook targets the Facebook Graph API.
	PlatformFacebook Platform = "facebook"
	// PlatformLinkedIn targets the LinkedIn API.
	PlatformLinkedIn Platform = "linkedin"
	// PlatformInstagram targets the Instagram Graph API.
	PlatformInstagram Platform = "instagram"
)

// AllPlatforms returns the closed set of supported platforms.
func AllPlatforms() []Platform {
	return []Platform{PlatformTwitter, PlatformFacebook, PlatformLinkedIn, PlatformInstagram}
}

// Valid returns true if the Platform is one of the supported destinations.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitter, PlatformFacebook, PlatformLinkedIn, PlatformInstagram:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so platforms can be parsed
// from env and JSON payloads.
func (p *Platform) UnmarshalText(text []byte) error {
	v := Platform(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid platform: %q", string(text))
	}
	*p = v
	return nil
}
