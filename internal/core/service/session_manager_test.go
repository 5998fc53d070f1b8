package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sdca/hris-portal/internal/core/domain"
	"github.com/sdca/hris-portal/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubRemote struct {
	mu sync.Mutex

	loginFn    func(ctx context.Context, req ports.LoginRequest) (*ports.AuthResult, error)
	registerFn func(ctx context.Context, req ports.RegisterRequest) (*ports.AuthResult, error)
	validateFn func(ctx context.Context, userID, token string) (bool, error)
	profileFn  func(ctx context.Context, userID, token string) (*ports.EmployeeProfile, error)
	updateFn   func(ctx context.Context, userID, token string, p ports.ProfileUpdatePayload) error

	calls map[string]int
}

func newStubRemote() *stubRemote {
	return &stubRemote{calls: make(map[string]int)}
}

func (r *stubRemote) count(op string) {
	r.mu.Lock()
	r.calls[op]++
	r.mu.Unlock()
}

func (r *stubRemote) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *stubRemote) Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResult, error) {
	r.count("login")
	if r.loginFn == nil {
		return nil, domain.ErrInvalidCredentials
	}
	return r.loginFn(ctx, req)
}

func (r *stubRemote) Register(ctx context.Context, req ports.RegisterRequest) (*ports.AuthResult, error) {
	r.count("register")
	if r.registerFn == nil {
		return nil, domain.ErrRequestRejected
	}
	return r.registerFn(ctx, req)
}

func (r *stubRemote) ValidateSession(ctx context.Context, userID, token string) (bool, error) {
	r.count("validate")
	if r.validateFn == nil {
		return true, nil
	}
	return r.validateFn(ctx, userID, token)
}

func (r *stubRemote) GetProfile(ctx context.Context, userID, token string) (*ports.EmployeeProfile, error) {
	r.count("profile")
	if r.profileFn == nil {
		return nil, domain.ErrRemoteUnavailable
	}
	return r.profileFn(ctx, userID, token)
}

func (r *stubRemote) UpdateProfile(ctx context.Context, userID, token string, p ports.ProfileUpdatePayload) error {
	r.count("update")
	if r.updateFn == nil {
		return nil
	}
	return r.updateFn(ctx, userID, token, p)
}

func (r *stubRemote) Logout(_ context.Context, _, _ string) error {
	r.count("logout")
	return nil
}

// memStore keeps the two persisted values separately so tests can seed
// partial or corrupt sessions.
type memStore struct {
	mu      sync.Mutex
	user    string
	token   string
	loadErr error
	saveErr error
}

func (s *memStore) Load(_ context.Context) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return domain.Session{}, s.loadErr
	}
	return domain.DecodeSession(s.user, s.token)
}

func (s *memStore) Save(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	u, t, err := domain.EncodeSession(sess)
	if err != nil {
		return err
	}
	s.user, s.token = u, t
	return nil
}

func (s *memStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user, s.token = "", ""
	return nil
}

func (s *memStore) Ping(_ context.Context) error { return nil }

func (s *memStore) hasUser() bool  { s.mu.Lock(); defer s.mu.Unlock(); return s.user != "" }
func (s *memStore) hasToken() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.token != "" }

func (s *memStore) seed(t *testing.T, u domain.User, token string) {
	t.Helper()
	if err := s.Save(context.Background(), domain.Session{User: u, Token: token}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	sessions []domain.Session
}

func (n *recordingNotifier) NotifyLogout(sess domain.Session) {
	n.mu.Lock()
	n.sessions = append(n.sessions, sess)
	n.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newManager(remote *stubRemote, store *memStore, notifier ports.LogoutNotifier) *SessionManager {
	return NewSessionManager(SessionManagerOptions{
		Remote:           remote,
		Store:            store,
		Notifier:         notifier,
		Logger:           zerolog.Nop(),
		BootstrapTimeout: 200 * time.Millisecond,
	})
}

func loginAs(u domain.User, token string) func(context.Context, ports.LoginRequest) (*ports.AuthResult, error) {
	return func(context.Context, ports.LoginRequest) (*ports.AuthResult, error) {
		return &ports.AuthResult{Token: token, User: u}, nil
	}
}

// assertStoreConsistent checks that the store holds a full session exactly
// when the manager reports an authenticated user.
func assertStoreConsistent(t *testing.T, m *SessionManager, s *memStore) {
	t.Helper()
	st := m.Snapshot()
	if st.IsAuthenticated != (s.hasUser() && s.hasToken()) {
		t.Fatalf("store/state mismatch: authenticated=%v user=%v token=%v", st.IsAuthenticated, s.hasUser(), s.hasToken())
	}
	if s.hasUser() != s.hasToken() {
		t.Fatalf("store holds half a session: user=%v token=%v", s.hasUser(), s.hasToken())
	}
}

var maria = domain.User{ID: "2", Email: "maria@x.com", Name: "Maria Santos", Role: domain.RoleHR, Department: "HR", ProfileCompleted: true}
var juan = domain.User{ID: "1", Email: "juan@x.com", Name: "Juan Dela Cruz", Role: domain.RoleEmployee, Department: "IT", Position: "Developer", ProfileCompleted: true}

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

func TestSessionManager_InitialStateIsLoading(t *testing.T) {
	m := newManager(newStubRemote(), &memStore{}, nil)

	st := m.Snapshot()
	if !st.IsLoading || st.IsAuthenticated || st.Phase != domain.PhaseBootstrapping {
		t.Fatalf("unexpected initial state: %+v", st)
	}
}

func TestSessionManager_Bootstrap_ValidSession(t *testing.T) {
	remote := newStubRemote()
	remote.validateFn = func(_ context.Context, userID, token string) (bool, error) {
		if userID != "2" || token != "abc" {
			t.Fatalf("unexpected validate args: %s %s", userID, token)
		}
		return true, nil
	}
	store := &memStore{}
	store.seed(t, domain.User{ID: "2", Email: "maria@x.com", Role: domain.RoleHR}, "abc")

	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	st := m.Snapshot()
	if !st.IsAuthenticated || st.IsLoading {
		t.Fatalf("expected authenticated and not loading, got %+v", st)
	}
	if st.User.Role != domain.RoleHR {
		t.Fatalf("expected hr role, got %s", st.User.Role)
	}
	assertStoreConsistent(t, m, store)
}

func TestSessionManager_Bootstrap_FailOpenOnTransportError(t *testing.T) {
	remote := newStubRemote()
	remote.validateFn = func(context.Context, string, string) (bool, error) {
		return false, fmt.Errorf("verify session: %w", domain.ErrRemoteUnavailable)
	}
	store := &memStore{}
	store.seed(t, juan, "tok")

	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	st := m.Snapshot()
	if !st.IsAuthenticated || st.IsLoading {
		t.Fatalf("expected fail-open login, got %+v", st)
	}
	if *st.User != juan {
		t.Fatalf("stored user altered: %+v", st.User)
	}
	if !store.hasUser() || !store.hasToken() {
		t.Fatalf("store must be kept on transport failure")
	}
}

func TestSessionManager_Bootstrap_FailOpenOnTimeout(t *testing.T) {
	remote := newStubRemote()
	remote.validateFn = func(ctx context.Context, _, _ string) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	}
	store := &memStore{}
	store.seed(t, juan, "tok")

	m := newManager(remote, store, nil)

	done := make(chan struct{})
	go func() {
		m.Bootstrap(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("bootstrap did not honour its timeout")
	}
	if st := m.Snapshot(); !st.IsAuthenticated || st.IsLoading {
		t.Fatalf("expected fail-open after timeout, got %+v", st)
	}
}

func TestSessionManager_Bootstrap_ExplicitRejectionClearsSession(t *testing.T) {
	remote := newStubRemote()
	remote.validateFn = func(context.Context, string, string) (bool, error) { return false, nil }
	store := &memStore{}
	store.seed(t, juan, "tok")

	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	st := m.Snapshot()
	if st.IsAuthenticated || st.IsLoading || st.User != nil {
		t.Fatalf("expected logged out, got %+v", st)
	}
	if store.hasUser() || store.hasToken() {
		t.Fatalf("store not cleared after rejection")
	}
}

func TestSessionManager_Bootstrap_TokenMissingMeansNoSession(t *testing.T) {
	remote := newStubRemote()
	store := &memStore{user: `{"id":"1","email":"juan@x.com"}`}

	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	st := m.Snapshot()
	if st.IsAuthenticated || st.IsLoading {
		t.Fatalf("expected logged out, got %+v", st)
	}
	if remote.Calls("validate") != 0 {
		t.Fatalf("no network call expected, got %d", remote.Calls("validate"))
	}
}

func TestSessionManager_Bootstrap_CorruptUserClearsStore(t *testing.T) {
	remote := newStubRemote()
	store := &memStore{user: `{"id":`, token: "tok"}

	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	if st := m.Snapshot(); st.IsAuthenticated || st.IsLoading {
		t.Fatalf("expected logged out, got %+v", st)
	}
	if store.hasUser() || store.hasToken() {
		t.Fatalf("corrupt session should be cleared")
	}
	if remote.Calls("validate") != 0 {
		t.Fatalf("no validation expected for a corrupt session")
	}
}

func TestSessionManager_Bootstrap_StoreFailureDegradesToLoggedOut(t *testing.T) {
	store := &memStore{loadErr: errors.New("disk on fire")}
	m := newManager(newStubRemote(), store, nil)
	m.Bootstrap(context.Background())

	if st := m.Snapshot(); st.IsAuthenticated || st.IsLoading || st.Phase != domain.PhaseLoggedOut {
		t.Fatalf("expected logged out, got %+v", st)
	}
}

func TestSessionManager_Bootstrap_NormalizesEmployeeID(t *testing.T) {
	remote := newStubRemote()
	var gotID string
	remote.validateFn = func(_ context.Context, userID, _ string) (bool, error) {
		gotID = userID
		return true, nil
	}
	store := &memStore{user: `{"employeeId":"EMP-7","email":"ana@x.com","role":"employee"}`, token: "tok"}

	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	if gotID != "EMP-7" {
		t.Fatalf("expected employeeId to be used as id, got %q", gotID)
	}
	if st := m.Snapshot(); st.User == nil || st.User.ID != "EMP-7" {
		t.Fatalf("expected normalized user, got %+v", st.User)
	}
}

func TestSessionManager_Bootstrap_ConcurrentCallsShareOneRun(t *testing.T) {
	remote := newStubRemote()
	release := make(chan struct{})
	remote.validateFn = func(context.Context, string, string) (bool, error) {
		<-release
		return true, nil
	}
	store := &memStore{}
	store.seed(t, juan, "tok")
	m := newManager(remote, store, nil)
	m.bootstrapTimeout = 5 * time.Second

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Bootstrap(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := remote.Calls("validate"); n != 1 {
		t.Fatalf("expected one validation, got %d", n)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestSessionManager_Login_Success(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = func(_ context.Context, req ports.LoginRequest) (*ports.AuthResult, error) {
		if req.Email != "maria@x.com" || req.Password != "secret" {
			t.Fatalf("unexpected credentials: %+v", req)
		}
		return &ports.AuthResult{Token: "abc", User: maria}, nil
	}
	store := &memStore{}
	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	if !m.Login(context.Background(), "maria@x.com", "secret") {
		t.Fatalf("expected login success")
	}

	st := m.Snapshot()
	if !st.IsAuthenticated || st.IsLoading || st.Phase != domain.PhaseLoggedIn {
		t.Fatalf("unexpected state: %+v", st)
	}
	sess, err := store.Load(context.Background())
	if err != nil || sess.Token != "abc" || sess.User.ID != "2" {
		t.Fatalf("store not written: %+v %v", sess, err)
	}
	assertStoreConsistent(t, m, store)
}

func TestSessionManager_Login_RejectedLeavesStateUntouched(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = func(context.Context, ports.LoginRequest) (*ports.AuthResult, error) {
		return nil, domain.ErrInvalidCredentials
	}
	store := &memStore{}
	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	if m.Login(context.Background(), "juan@x.com", "wrong") {
		t.Fatalf("expected login failure")
	}
	if st := m.Snapshot(); st.IsAuthenticated || st.IsLoading {
		t.Fatalf("unexpected state: %+v", st)
	}
	if store.hasUser() || store.hasToken() {
		t.Fatalf("store must stay untouched")
	}
}

func TestSessionManager_Login_MalformedResponse(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = func(context.Context, ports.LoginRequest) (*ports.AuthResult, error) {
		return &ports.AuthResult{Token: "", User: juan}, nil
	}
	store := &memStore{}
	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	if m.Login(context.Background(), "juan@x.com", "pw") {
		t.Fatalf("expected failure on missing token")
	}
	assertStoreConsistent(t, m, store)
}

func TestSessionManager_Login_StoreFailureReturnsFalse(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = loginAs(juan, "tok")
	store := &memStore{saveErr: errors.New("read-only filesystem")}
	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	if m.Login(context.Background(), "juan@x.com", "pw") {
		t.Fatalf("expected failure when the session cannot be persisted")
	}
	if m.Snapshot().IsAuthenticated {
		t.Fatalf("memory must not be committed without the store")
	}
}

func TestSessionManager_Login_LoadingWhileInFlight(t *testing.T) {
	remote := newStubRemote()
	entered := make(chan struct{})
	release := make(chan struct{})
	remote.loginFn = func(context.Context, ports.LoginRequest) (*ports.AuthResult, error) {
		close(entered)
		<-release
		return &ports.AuthResult{Token: "tok", User: juan}, nil
	}
	m := newManager(remote, &memStore{}, nil)
	m.Bootstrap(context.Background())

	done := make(chan bool)
	go func() { done <- m.Login(context.Background(), "juan@x.com", "pw") }()

	<-entered
	if !m.Snapshot().IsLoading {
		t.Fatalf("expected loading while login is in flight")
	}
	close(release)
	if !<-done {
		t.Fatalf("expected login success")
	}
	if m.Snapshot().IsLoading {
		t.Fatalf("loading flag not reset")
	}
}

func TestSessionManager_Login_DerivesMissingRole(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = loginAs(domain.User{ID: "9", Email: "lea@x.com", Position: "HR Specialist", ProfileCompleted: true}, "tok")
	m := newManager(remote, &memStore{}, nil)
	m.Bootstrap(context.Background())

	if !m.Login(context.Background(), "lea@x.com", "pw") {
		t.Fatalf("expected login success")
	}
	if role := m.Snapshot().User.Role; role != domain.RoleHR {
		t.Fatalf("expected derived hr role, got %s", role)
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestSessionManager_Register_EstablishesIncompleteSession(t *testing.T) {
	remote := newStubRemote()
	remote.registerFn = func(_ context.Context, req ports.RegisterRequest) (*ports.AuthResult, error) {
		return &ports.AuthResult{Token: "new", User: domain.User{ID: "10", ProfileCompleted: false}}, nil
	}
	store := &memStore{}
	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	ok := m.Register(context.Background(), ports.RegisterRequest{Email: "new@x.com", Department: "hr"})
	if !ok {
		t.Fatalf("expected registration success")
	}
	st := m.Snapshot()
	if !st.IsAuthenticated || st.User.ProfileCompleted {
		t.Fatalf("expected authenticated user with incomplete profile, got %+v", st.User)
	}
	if st.User.Email != "new@x.com" {
		t.Fatalf("expected email from request, got %q", st.User.Email)
	}
	if st.User.Role != domain.RoleHR {
		t.Fatalf("expected role derived from department, got %s", st.User.Role)
	}
	assertStoreConsistent(t, m, store)
}

func TestSessionManager_Register_Rejected(t *testing.T) {
	remote := newStubRemote()
	remote.registerFn = func(context.Context, ports.RegisterRequest) (*ports.AuthResult, error) {
		return nil, fmt.Errorf("register: %w", domain.ErrRequestRejected)
	}
	store := &memStore{}
	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	if m.Register(context.Background(), ports.RegisterRequest{Email: "dup@x.com"}) {
		t.Fatalf("expected failure")
	}
	assertStoreConsistent(t, m, store)
}

// ---------------------------------------------------------------------------
// Logout
// ---------------------------------------------------------------------------

func TestSessionManager_Logout_IsTotal(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = loginAs(juan, "tok")
	store := &memStore{}
	notifier := &recordingNotifier{}
	m := newManager(remote, store, notifier)
	m.Bootstrap(context.Background())

	if !m.Login(context.Background(), "juan@x.com", "pw") {
		t.Fatalf("login failed")
	}
	m.Logout(context.Background())

	st := m.Snapshot()
	if st.User != nil || st.IsAuthenticated || st.Phase != domain.PhaseLoggedOut {
		t.Fatalf("unexpected state after logout: %+v", st)
	}
	if store.hasUser() || store.hasToken() {
		t.Fatalf("store not cleared")
	}
	if len(notifier.sessions) != 1 || notifier.sessions[0].Token != "tok" {
		t.Fatalf("expected one logout notification, got %+v", notifier.sessions)
	}
}

func TestSessionManager_Logout_WhenLoggedOutSkipsNotification(t *testing.T) {
	notifier := &recordingNotifier{}
	m := newManager(newStubRemote(), &memStore{}, notifier)
	m.Bootstrap(context.Background())

	m.Logout(context.Background())

	if len(notifier.sessions) != 0 {
		t.Fatalf("no notification expected")
	}
}

// ---------------------------------------------------------------------------
// UpdateProfile
// ---------------------------------------------------------------------------

func TestSessionManager_UpdateProfile_RefreshesUser(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = loginAs(domain.User{ID: "5", Email: "ana@x.com", Role: domain.RoleEmployee}, "tok")
	store := &memStore{}
	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())
	if !m.Login(context.Background(), "ana@x.com", "pw") {
		t.Fatalf("login failed")
	}

	ok := m.UpdateProfile(context.Background(), ports.ProfileUpdatePayload{
		Department: "HR",
		FirstName:  "Ana",
		LastName:   "Cruz",
	})
	if !ok {
		t.Fatalf("expected update success")
	}

	u := m.Snapshot().User
	if u.Role != domain.RoleHR || u.Name != "Ana Cruz" || !u.ProfileCompleted {
		t.Fatalf("unexpected user: %+v", u)
	}
	sess, _ := store.Load(context.Background())
	if sess.User != *u {
		t.Fatalf("store not refreshed: %+v", sess.User)
	}
}

func TestSessionManager_UpdateProfile_TrustsServerRole(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = loginAs(juan, "tok")
	remote.profileFn = func(context.Context, string, string) (*ports.EmployeeProfile, error) {
		return &ports.EmployeeProfile{ID: "1", Role: "hr"}, nil
	}
	m := newManager(remote, &memStore{}, nil)
	m.Bootstrap(context.Background())
	m.Login(context.Background(), "juan@x.com", "pw")

	if !m.UpdateProfile(context.Background(), ports.ProfileUpdatePayload{Position: "Developer"}) {
		t.Fatalf("expected success")
	}
	if role := m.Snapshot().User.Role; role != domain.RoleHR {
		t.Fatalf("expected server role, got %s", role)
	}
}

func TestSessionManager_UpdateProfile_LoggedOutMakesNoCall(t *testing.T) {
	remote := newStubRemote()
	m := newManager(remote, &memStore{}, nil)
	m.Bootstrap(context.Background())

	if m.UpdateProfile(context.Background(), ports.ProfileUpdatePayload{FirstName: "X"}) {
		t.Fatalf("expected false when logged out")
	}
	if remote.Calls("update") != 0 {
		t.Fatalf("no remote call expected")
	}
}

func TestSessionManager_UpdateProfile_FailureKeepsState(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = loginAs(juan, "tok")
	remote.updateFn = func(context.Context, string, string, ports.ProfileUpdatePayload) error {
		return domain.ErrRequestRejected
	}
	store := &memStore{}
	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())
	m.Login(context.Background(), "juan@x.com", "pw")

	if m.UpdateProfile(context.Background(), ports.ProfileUpdatePayload{Department: "HR"}) {
		t.Fatalf("expected failure")
	}
	if u := m.Snapshot().User; *u != juan {
		t.Fatalf("user changed on failure: %+v", u)
	}
}

func TestSessionManager_UpdateProfile_DroppedWhenLoggedOutMidFlight(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = loginAs(juan, "tok")
	entered := make(chan struct{})
	release := make(chan struct{})
	remote.updateFn = func(context.Context, string, string, ports.ProfileUpdatePayload) error {
		close(entered)
		<-release
		return nil
	}
	store := &memStore{}
	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())
	m.Login(context.Background(), "juan@x.com", "pw")

	done := make(chan bool)
	go func() {
		done <- m.UpdateProfile(context.Background(), ports.ProfileUpdatePayload{Department: "HR"})
	}()
	<-entered
	m.Logout(context.Background())
	close(release)

	if <-done {
		t.Fatalf("update must be dropped after logout")
	}
	if m.Snapshot().IsAuthenticated || store.hasUser() {
		t.Fatalf("logout must win over the in-flight update")
	}
}

// ---------------------------------------------------------------------------
// Store consistency across sequences
// ---------------------------------------------------------------------------

func TestSessionManager_StoreConsistencyAcrossSequence(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = func(_ context.Context, req ports.LoginRequest) (*ports.AuthResult, error) {
		if req.Password == "bad" {
			return nil, domain.ErrInvalidCredentials
		}
		return &ports.AuthResult{Token: "tok-" + req.Email, User: juan}, nil
	}
	store := &memStore{}
	m := newManager(remote, store, nil)
	m.Bootstrap(context.Background())

	steps := []func(){
		func() { m.Login(context.Background(), "a", "bad") },
		func() { m.Login(context.Background(), "a", "ok") },
		func() { m.UpdateProfile(context.Background(), ports.ProfileUpdatePayload{FirstName: "J", LastName: "C"}) },
		func() { m.Logout(context.Background()) },
		func() { m.UpdateProfile(context.Background(), ports.ProfileUpdatePayload{FirstName: "J"}) },
		func() { m.Login(context.Background(), "b", "ok") },
		func() { m.Logout(context.Background()) },
		func() { m.Logout(context.Background()) },
	}
	for i, step := range steps {
		step()
		t.Run(fmt.Sprintf("step_%d", i), func(t *testing.T) {
			assertStoreConsistent(t, m, store)
		})
	}
}

// ---------------------------------------------------------------------------
// Subscribe
// ---------------------------------------------------------------------------

func TestSessionManager_SubscribeSeesLatestState(t *testing.T) {
	remote := newStubRemote()
	remote.loginFn = loginAs(juan, "tok")
	m := newManager(remote, &memStore{}, nil)

	ch, cancel := m.Subscribe()
	defer cancel()

	if st := <-ch; !st.IsLoading {
		t.Fatalf("first state should be the bootstrapping one: %+v", st)
	}

	m.Bootstrap(context.Background())
	m.Login(context.Background(), "juan@x.com", "pw")

	select {
	case st := <-ch:
		if !st.IsAuthenticated || st.IsLoading {
			t.Fatalf("expected latest authenticated state, got %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatalf("no state received")
	}
}

func TestSessionManager_SubscribeCancelClosesChannel(t *testing.T) {
	m := newManager(newStubRemote(), &memStore{}, nil)
	ch, cancel := m.Subscribe()
	<-ch
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	m.Bootstrap(context.Background())
}
