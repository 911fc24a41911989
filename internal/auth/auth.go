// Package auth issues and validates admin session tokens.
package auth

import (
	"errors"
	"time"
)

// State is the outcome of validating a session token.
type State int

const (
	StateValid State = iota
	StateExpired
	StateMalformed
	StateRevoked
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	case StateMalformed:
		return "malformed"
	case StateRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidCredentials is returned when a login password does not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken is returned for any token that is not StateValid.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Token is a freshly issued session.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Authenticator issues, validates and revokes session tokens.
type Authenticator interface {
	Issue(subject string) (Token, error)
	Validate(raw string) (*Claims, State, error)
	Revoke(raw string) error
}
