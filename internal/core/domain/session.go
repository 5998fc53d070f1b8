package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Phase is the lifecycle state of the session manager.
type Phase string

const (
	PhaseBootstrapping Phase = "bootstrapping"
	PhaseLoggedOut     Phase = "logged_out"
	PhaseLoggedIn      Phase = "logged_in"
)

// Session pairs an authenticated user with the opaque token issued for it.
type Session struct {
	User  User
	Token string
}

// SessionState is a point-in-time view of the session manager.
type SessionState struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
	IsLoading       bool  `json:"isLoading"`
	Phase           Phase `json:"phase"`
}

// EncodeSession renders a session into the two persisted values: the JSON
// user record and the token. Both must be non-empty.
func EncodeSession(sess Session) (user string, token string, err error) {
	if sess.Token == "" {
		return "", "", errors.New("session token cannot be empty")
	}
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return "", "", fmt.Errorf("marshal user: %w", err)
	}
	return string(raw), sess.Token, nil
}

// DecodeSession rebuilds a session from the persisted values. A missing half
// is reported as ErrSessionNotFound, an unparseable user as ErrSessionCorrupt.
func DecodeSession(user, token string) (Session, error) {
	if user == "" || token == "" {
		return Session{}, ErrSessionNotFound
	}
	var u *User
	if err := json.Unmarshal([]byte(user), &u); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if u == nil {
		return Session{}, ErrSessionNotFound
	}
	return Session{User: *u, Token: token}, nil
}
