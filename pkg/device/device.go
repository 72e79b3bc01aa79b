package device

import (
	"context"
	"time"
)

// Platform identifies the push delivery platform of a device token.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// Platforms lists all supported platforms.
var Platforms = []Platform{PlatformAndroid, PlatformIOS}

// Valid reports whether the platform is supported.
func (p Platform) Valid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (p Platform) String() string { return string(p) }

// TTL returns how long a user's token list stays live without a refresh.
// iOS tokens rotate more aggressively, so their window is shorter.
func (p Platform) TTL() time.Duration {
	if p == PlatformIOS {
		return 7 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

// MaxTokensPerUser caps how many tokens one user keeps per platform.
const MaxTokensPerUser = 5

// Registry stores device tokens and the invalid-token blacklist.
type Registry interface {
	// Register stores token as the user's most recent device for platform,
	// deduplicating and trimming the list to MaxTokensPerUser, and resets
	// the list TTL.
	Register(ctx context.Context, userID string, platform Platform, token string) error

	// Tokens returns the user's live tokens for platform, newest first,
	// with blacklisted tokens filtered out. An expired or unknown user
	// returns an empty slice.
	Tokens(ctx context.Context, userID string, platform Platform) ([]string, error)

	// Touch extends the TTL of the user's token list. A missing list is a
	// no-op.
	Touch(ctx context.Context, userID string, platform Platform) error

	// Remove deletes one token from the user's list.
	Remove(ctx context.Context, userID string, platform Platform, token string) error

	// Blacklist marks token permanently invalid for platform, across all
	// users.
	Blacklist(ctx context.Context, platform Platform, token string) error

	// IsBlacklisted reports whether token is blacklisted for platform.
	IsBlacklisted(ctx context.Context, platform Platform, token string) (bool, error)
}

// validateTokenArgs covers the argument checks shared by both backends.
func validateTokenArgs(userID string, platform Platform, token string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if !platform.Valid() {
		return ErrInvalidPlatform
	}
	if token == "" {
		return ErrTokenRequired
	}
	return nil
}
