package ports

import (
	"context"

	"github.com/sdca/hris-portal/internal/core/domain"
)

// SessionStore is the durable client-side home of the current session.
// Save and Clear must write the user and token together.
type SessionStore interface {
	// Load returns domain.ErrSessionNotFound when nothing (or only half a
	// session) is stored and domain.ErrSessionCorrupt when the user record
	// cannot be parsed.
	Load(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, sess domain.Session) error
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
}
