package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/sdca/hris-portal/internal/core/domain"
	"github.com/sdca/hris-portal/internal/core/ports"
	"github.com/sdca/hris-portal/internal/pkg/metrics"
)

const defaultBootstrapTimeout = 10 * time.Second

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Remote   ports.RemoteService
	Store    ports.SessionStore
	Notifier ports.LogoutNotifier // optional
	Logger   zerolog.Logger
	// BootstrapTimeout bounds the session validation call made at startup.
	BootstrapTimeout time.Duration
}

// SessionManager owns the authentication lifecycle of the portal. It is the
// single source of truth for who is logged in; the store is always written
// before the in-memory state so both agree once an operation settles.
type SessionManager struct {
	remote           ports.RemoteService
	store            ports.SessionStore
	notifier         ports.LogoutNotifier
	log              zerolog.Logger
	bootstrapTimeout time.Duration

	bootstrapOnce singleflight.Group

	mu       sync.RWMutex
	session  *domain.Session
	phase    domain.Phase
	inflight int
	subs     map[int]chan domain.SessionState
	nextSub  int
}

var _ ports.SessionService = (*SessionManager)(nil)

// NewSessionManager returns a manager in the bootstrapping phase. Until
// Bootstrap settles the state reports IsLoading.
func NewSessionManager(opts SessionManagerOptions) *SessionManager {
	timeout := opts.BootstrapTimeout
	if timeout <= 0 {
		timeout = defaultBootstrapTimeout
	}
	return &SessionManager{
		remote:           opts.Remote,
		store:            opts.Store,
		notifier:         opts.Notifier,
		log:              opts.Logger,
		bootstrapTimeout: timeout,
		phase:            domain.PhaseBootstrapping,
		subs:             make(map[int]chan domain.SessionState),
	}
}

// Bootstrap restores the persisted session and revalidates it with the Remote
// Service. Transport failures keep the stored session (fail open); an explicit
// rejection clears it (fail closed). Concurrent calls share one run.
func (m *SessionManager) Bootstrap(ctx context.Context) {
	_, _, _ = m.bootstrapOnce.Do("bootstrap", func() (any, error) {
		m.bootstrap(ctx)
		return nil, nil
	})
}

func (m *SessionManager) bootstrap(ctx context.Context) {
	m.mu.Lock()
	m.phase = domain.PhaseBootstrapping
	m.publishLocked()
	m.mu.Unlock()

	sess, outcome := m.restore(ctx)
	metrics.SessionBootstrapTotal.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = sess
	if sess != nil {
		m.phase = domain.PhaseLoggedIn
	} else {
		m.phase = domain.PhaseLoggedOut
	}
	m.publishLocked()

	ev := m.log.Info().Str("outcome", outcome)
	if sess != nil {
		ev = ev.Str("user_id", sess.User.ID)
	}
	ev.Msg("session bootstrap finished")
}

func (m *SessionManager) restore(ctx context.Context) (*domain.Session, string) {
	stored, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return nil, "no_session"
	case errors.Is(err, domain.ErrSessionCorrupt):
		m.log.Warn().Err(err).Msg("stored session unreadable, clearing")
		m.clearStore(ctx)
		return nil, "corrupt"
	case err != nil:
		m.log.Error().Err(err).Msg("session store unavailable, starting logged out")
		m.clearStore(ctx)
		return nil, "store_error"
	}

	stored.User.Normalize()

	vctx, cancel := context.WithTimeout(ctx, m.bootstrapTimeout)
	defer cancel()

	valid, err := m.remote.ValidateSession(vctx, stored.User.ID, stored.Token)
	if err != nil {
		m.log.Warn().Err(err).Str("user_id", stored.User.ID).
			Msg("session verification failed, keeping stored session")
		return &stored, "fail_open"
	}
	if !valid {
		m.clearStore(ctx)
		return nil, "rejected"
	}
	return &stored, "valid"
}

// Login authenticates against the Remote Service and establishes a session.
func (m *SessionManager) Login(ctx context.Context, email, password string) bool {
	m.beginOp()
	defer m.endOp()

	res, err := m.remote.Login(ctx, ports.LoginRequest{Email: email, Password: password})
	if err != nil {
		m.recordFailure("login", err)
		return false
	}
	return m.establish(ctx, "login", res, "", "")
}

// Register creates the account and, like Login, establishes a session for it.
// The new user normally has an incomplete profile and is routed to the
// personal-information form.
func (m *SessionManager) Register(ctx context.Context, req ports.RegisterRequest) bool {
	m.beginOp()
	defer m.endOp()

	res, err := m.remote.Register(ctx, req)
	if err != nil {
		m.recordFailure("register", err)
		return false
	}
	if res.User.Email == "" {
		res.User.Email = req.Email
	}
	return m.establish(ctx, "register", res, req.Department, req.Position)
}

// establish commits a fresh session. department/position are used for role
// derivation when the user record carries none.
func (m *SessionManager) establish(ctx context.Context, op string, res *ports.AuthResult, department, position string) bool {
	user := res.User
	user.Normalize()
	if res.Token == "" || user.ID == "" {
		m.recordFailure(op, domain.ErrMalformedResponse)
		return false
	}
	if user.Department != "" || user.Position != "" {
		department, position = user.Department, user.Position
	}
	user.Role = domain.ResolveRole(string(user.Role), department, position)

	sess := domain.Session{User: user, Token: res.Token}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(ctx, sess); err != nil {
		m.log.Error().Err(err).Str("op", op).Msg("persist session failed")
		metrics.SessionOperationsTotal.WithLabelValues(op, "error").Inc()
		return false
	}
	m.session = &sess
	m.phase = domain.PhaseLoggedIn
	m.publishLocked()

	metrics.SessionOperationsTotal.WithLabelValues(op, "success").Inc()
	m.log.Info().Str("op", op).Str("user_id", user.ID).Str("role", string(user.Role)).Msg("session established")
	return true
}

// Logout clears the session locally and notifies the Remote Service in the
// background. It cannot fail from the caller's point of view.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	prev := m.session
	m.clearStore(ctx)
	m.session = nil
	m.phase = domain.PhaseLoggedOut
	m.publishLocked()
	m.mu.Unlock()

	metrics.SessionOperationsTotal.WithLabelValues("logout", "success").Inc()
	if prev == nil {
		return
	}
	m.log.Info().Str("user_id", prev.User.ID).Msg("logged out")
	if m.notifier != nil {
		m.notifier.NotifyLogout(*prev)
	}
}

// UpdateProfile sends a profile update and, on success, refreshes the local
// user: name, role, profileCompleted. Returns false without a network call
// when nobody is logged in. If the session changes while the call is in
// flight the result is discarded.
func (m *SessionManager) UpdateProfile(ctx context.Context, payload ports.ProfileUpdatePayload) bool {
	cur := m.current()
	if cur == nil {
		metrics.SessionOperationsTotal.WithLabelValues("update_profile", "skipped").Inc()
		return false
	}

	m.beginOp()
	defer m.endOp()

	if err := m.remote.UpdateProfile(ctx, cur.User.ID, cur.Token, payload); err != nil {
		m.recordFailure("update_profile", err)
		return false
	}

	var serverRole string
	if profile, err := m.remote.GetProfile(ctx, cur.User.ID, cur.Token); err != nil {
		m.log.Warn().Err(err).Str("user_id", cur.User.ID).Msg("profile refresh failed, deriving role locally")
	} else {
		serverRole = profile.Role
	}

	updated := mergeProfile(cur.User, payload, serverRole)
	sess := domain.Session{User: updated, Token: cur.Token}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.Token != cur.Token || m.session.User.ID != cur.User.ID {
		m.log.Warn().Str("user_id", cur.User.ID).Msg("session changed during profile update, dropping result")
		metrics.SessionOperationsTotal.WithLabelValues("update_profile", "skipped").Inc()
		return false
	}
	if err := m.store.Save(ctx, sess); err != nil {
		m.log.Error().Err(err).Msg("persist updated profile failed")
		metrics.SessionOperationsTotal.WithLabelValues("update_profile", "error").Inc()
		return false
	}
	m.session = &sess
	m.publishLocked()

	metrics.SessionOperationsTotal.WithLabelValues("update_profile", "success").Inc()
	return true
}

func mergeProfile(u domain.User, p ports.ProfileUpdatePayload, serverRole string) domain.User {
	if name := domain.FullName(p.FirstName, p.LastName); name != "" {
		u.Name = name
	}
	if p.Department != "" {
		u.Department = p.Department
	}
	if p.Position != "" {
		u.Position = p.Position
	}
	u.Role = domain.ResolveRole(serverRole, u.Department, u.Position)
	u.ProfileCompleted = true
	return u
}

// Snapshot returns the latest committed state.
func (m *SessionManager) Snapshot() domain.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Subscribe returns a channel that always holds the most recent state.
// Slow readers skip intermediate states.
func (m *SessionManager) Subscribe() (<-chan domain.SessionState, func()) {
	ch := make(chan domain.SessionState, 1)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			close(ch)
			m.mu.Unlock()
		})
	}
	return ch, cancel
}

func (m *SessionManager) current() *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	sess := *m.session
	return &sess
}

func (m *SessionManager) beginOp() {
	m.mu.Lock()
	m.inflight++
	m.publishLocked()
	m.mu.Unlock()
}

func (m *SessionManager) endOp() {
	m.mu.Lock()
	m.inflight--
	m.publishLocked()
	m.mu.Unlock()
}

func (m *SessionManager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error().Err(err).Msg("clear session store failed")
	}
}

func (m *SessionManager) recordFailure(op string, err error) {
	result := "error"
	if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrRequestRejected) {
		result = "rejected"
	}
	metrics.SessionOperationsTotal.WithLabelValues(op, result).Inc()
	m.log.Warn().Err(err).Str("op", op).Msg("session operation failed")
}

func (m *SessionManager) snapshotLocked() domain.SessionState {
	st := domain.SessionState{
		IsLoading: m.phase == domain.PhaseBootstrapping || m.inflight > 0,
		Phase:     m.phase,
	}
	if m.session != nil {
		u := m.session.User
		st.User = &u
		st.IsAuthenticated = true
	}
	return st
}

func (m *SessionManager) publishLocked() {
	st := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
