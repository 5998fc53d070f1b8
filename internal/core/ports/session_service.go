package ports

import (
	"context"

	"github.com/sdca/hris-portal/internal/core/domain"
)

// SessionService is the session lifecycle as seen by the HTTP layer.
// Expected failures surface as false, never as errors.
type SessionService interface {
	Bootstrap(ctx context.Context)
	Login(ctx context.Context, email, password string) bool
	Register(ctx context.Context, req RegisterRequest) bool
	Logout(ctx context.Context)
	UpdateProfile(ctx context.Context, payload ProfileUpdatePayload) bool

	Snapshot() domain.SessionState
	// Subscribe streams state changes until the returned cancel func is called.
	Subscribe() (<-chan domain.SessionState, func())
}
