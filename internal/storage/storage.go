package storage

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrPostNotFound = errors.New("post not found")
	// ErrTokenUnreadable means a stored token no longer opens, e.g. after the
	// encryption key was rotated. The row itself is intact.
	ErrTokenUnreadable = errors.New("stored token unreadable")
)

// TokenSealer keeps OAuth tokens encrypted at rest. Digest gives a stable
// value for lookup by access token.
type TokenSealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
	Digest(token string) string
}
