package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sdca/hris-portal/internal/core/domain"
	"github.com/sdca/hris-portal/internal/core/ports"
	"github.com/sdca/hris-portal/internal/infrastructure/remote/remotetest"
)

func newTestClient(t *testing.T) (*Client, *remotetest.Server) {
	t.Helper()
	srv := remotetest.New()
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop()), srv
}

func TestClient_LoginSuccess(t *testing.T) {
	c, srv := newTestClient(t)
	id := srv.AddUser("maria@sdca.edu.ph", "secret", ports.EmployeeProfile{
		FirstName: "Maria", LastName: "Santos", Department: "HR", Role: "hr", ProfileCompleted: true,
	})

	res, err := c.Login(context.Background(), ports.LoginRequest{Email: "maria@sdca.edu.ph", Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token")
	}
	if res.User.ID != id || res.User.Role != domain.RoleHR || res.User.Name != "Maria Santos" {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	if _, err := uuid.Parse(srv.LastHeader("/auth/login", "X-Request-ID")); err != nil {
		t.Fatalf("expected X-Request-ID uuid, got %q", srv.LastHeader("/auth/login", "X-Request-ID"))
	}
}

func TestClient_LoginWrongPassword(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddUser("juan@sdca.edu.ph", "secret", ports.EmployeeProfile{})

	_, err := c.Login(context.Background(), ports.LoginRequest{Email: "juan@sdca.edu.ph", Password: "nope"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestClient_RegisterConflict(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddUser("dup@sdca.edu.ph", "secret", ports.EmployeeProfile{})

	_, err := c.Register(context.Background(), ports.RegisterRequest{Email: "dup@sdca.edu.ph", Password: "x"})
	if !errors.Is(err, domain.ErrRequestRejected) {
		t.Fatalf("expected ErrRequestRejected, got %v", err)
	}
}

func TestClient_RegisterReturnsIncompleteProfile(t *testing.T) {
	c, _ := newTestClient(t)
	res, err := c.Register(context.Background(), ports.RegisterRequest{Email: "new@sdca.edu.ph", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.ProfileCompleted {
		t.Fatalf("fresh account should not have a completed profile")
	}
}

func TestClient_ValidateSession(t *testing.T) {
	c, srv := newTestClient(t)
	id := srv.AddUser("a@sdca.edu.ph", "pw", ports.EmployeeProfile{})
	tok := srv.IssueToken(id)
	ctx := context.Background()

	tests := []struct {
		name      string
		mode      remotetest.ValidateMode
		token     string
		wantValid bool
		wantErr   error
	}{
		{"valid token", remotetest.ValidateNormal, tok, true, nil},
		{"garbage token", remotetest.ValidateNormal, "garbage", false, nil},
		{"explicit reject", remotetest.ValidateReject, tok, false, nil},
		{"401 is a verdict", remotetest.ValidateUnauthorized, tok, false, nil},
		{"server error", remotetest.ValidateServerError, tok, false, domain.ErrRemoteUnavailable},
		{"malformed body", remotetest.ValidateMalformed, tok, false, domain.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv.SetValidateMode(tt.mode)
			valid, err := c.ValidateSession(ctx, id, tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v", valid, tt.wantValid)
			}
		})
	}
}

func TestClient_ValidateSessionTimeout(t *testing.T) {
	c, srv := newTestClient(t)
	srv.SetValidateMode(remotetest.ValidateHang)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.ValidateSession(ctx, "1", "tok")
	if !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: base, Timeout: time.Second}, zerolog.Nop())
	_, err := c.ValidateSession(context.Background(), "1", "tok")
	if !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestClient_UpdateAndGetProfile(t *testing.T) {
	c, srv := newTestClient(t)
	id := srv.AddUser("b@sdca.edu.ph", "pw", ports.EmployeeProfile{})
	tok := srv.IssueToken(id)
	ctx := context.Background()

	err := c.UpdateProfile(ctx, id, tok, ports.ProfileUpdatePayload{
		FirstName: "Ana", LastName: "Reyes", Department: "HR", Position: "Officer",
		Family: &ports.FamilyInfo{MotherName: "Lourdes"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	p, err := c.GetProfile(ctx, id, tok)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !p.ProfileCompleted || p.FirstName != "Ana" || p.Department != "HR" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.FamilyInfo == nil || p.FamilyInfo.MotherName != "Lourdes" {
		t.Fatalf("family info not stored: %+v", p.FamilyInfo)
	}
	if got := srv.LastHeader("/employees/get", "Authorization"); got != "Bearer "+tok {
		t.Fatalf("bearer not sent: %q", got)
	}
}

func TestClient_UpdateProfileUnauthorized(t *testing.T) {
	c, srv := newTestClient(t)
	id := srv.AddUser("c@sdca.edu.ph", "pw", ports.EmployeeProfile{})

	err := c.UpdateProfile(context.Background(), id, "bad", ports.ProfileUpdatePayload{FirstName: "X"})
	if !errors.Is(err, domain.ErrSessionRejected) {
		t.Fatalf("expected ErrSessionRejected, got %v", err)
	}
}

func TestClient_LogoutRevokesToken(t *testing.T) {
	c, srv := newTestClient(t)
	id := srv.AddUser("d@sdca.edu.ph", "pw", ports.EmployeeProfile{})
	tok := srv.IssueToken(id)
	ctx := context.Background()

	if err := c.Logout(ctx, id, tok); err != nil {
		t.Fatalf("logout: %v", err)
	}
	valid, err := c.ValidateSession(ctx, id, tok)
	if err != nil || valid {
		t.Fatalf("token should be invalid after logout: valid=%v err=%v", valid, err)
	}
}
