// Package remotetest runs an in-process stand-in for the HRIS Remote Service.
// Passwords are bcrypt-hashed and tokens are HS256 JWTs so the portal talks to
// something that behaves like the real API.
package remotetest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sdca/hris-portal/internal/core/domain"
	"github.com/sdca/hris-portal/internal/core/ports"
)

// ValidateMode controls how /auth/verify-session answers.
type ValidateMode int

const (
	ValidateNormal ValidateMode = iota
	// ValidateReject answers {"valid": false} for every token.
	ValidateReject
	// ValidateUnauthorized answers 401.
	ValidateUnauthorized
	// ValidateServerError answers 500.
	ValidateServerError
	// ValidateMalformed answers 200 with a body that is not JSON.
	ValidateMalformed
	// ValidateHang blocks until the request context ends.
	ValidateHang
)

const secret = "remotetest-secret"

type account struct {
	hash    []byte
	profile ports.EmployeeProfile
}

// Server is a fake Remote Service backed by httptest.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account // by email
	byID     map[string]string   // id -> email
	revoked  map[string]bool
	mode     ValidateMode
	calls    map[string]int
	nextID   int
	lastReq  map[string]*http.Request
}

// New starts a fake Remote Service. Call Close when done.
func New() *Server {
	s := &Server{
		accounts: make(map[string]*account),
		byID:     make(map[string]string),
		revoked:  make(map[string]bool),
		calls:    make(map[string]int),
		lastReq:  make(map[string]*http.Request),
		nextID:   1000,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(s.record)
	e.POST("/auth/login", s.login)
	e.POST("/auth/register", s.register)
	e.POST("/auth/verify-session", s.verify)
	e.POST("/auth/logout", s.logout)
	e.GET("/employees/get/:id", s.getEmployee)
	e.PUT("/employees/update/:id", s.updateEmployee)

	s.Server = httptest.NewServer(e)
	return s
}

// AddUser seeds an account and returns its id.
func (s *Server) AddUser(email, password string, profile ports.EmployeeProfile) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if profile.ID == "" {
		s.nextID++
		profile.ID = strconv.Itoa(s.nextID)
	}
	profile.Email = email
	s.accounts[email] = &account{hash: hash, profile: profile}
	s.byID[profile.ID] = email
	return profile.ID
}

// IssueToken mints a token for id without going through login.
func (s *Server) IssueToken(id string) string {
	tok, err := sign(id)
	if err != nil {
		panic(err)
	}
	return tok
}

// SetValidateMode changes how session verification answers.
func (s *Server) SetValidateMode(m ValidateMode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// Calls returns how often a path was hit.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastHeader returns a header from the most recent request to path.
func (s *Server) LastHeader(path, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.lastReq[path]; ok {
		return r.Header.Get(key)
	}
	return ""
}

// Profile returns the stored profile for id.
func (s *Server) Profile(id string) (ports.EmployeeProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[s.byID[id]]
	if !ok {
		return ports.EmployeeProfile{}, false
	}
	return acc.profile, true
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().URL.Path
		if strings.HasPrefix(key, "/employees/") {
			key = key[:strings.LastIndex(key, "/")]
		}
		s.mu.Lock()
		s.calls[key]++
		s.lastReq[key] = c.Request()
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "invalid body"})
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": "error", "message": "Invalid credentials"})
	}
	return s.authResponse(c, http.StatusOK, acc.profile)
}

func (s *Server) register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "email and password are required"})
	}

	s.mu.Lock()
	_, exists := s.accounts[req.Email]
	s.mu.Unlock()
	if exists {
		return c.JSON(http.StatusConflict, echo.Map{"status": "error", "message": "Email already registered"})
	}

	id := s.AddUser(req.Email, req.Password, ports.EmployeeProfile{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Department: req.Department,
		Position:   req.Position,
	})
	p, _ := s.Profile(id)
	return s.authResponse(c, http.StatusCreated, p)
}

func (s *Server) authResponse(c echo.Context, status int, p ports.EmployeeProfile) error {
	tok, err := sign(p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error"})
	}
	user := domain.User{
		ID:               p.ID,
		Email:            p.Email,
		Name:             domain.FullName(p.FirstName, p.LastName),
		Role:             domain.Role(p.Role),
		Department:       p.Department,
		Position:         p.Position,
		ProfileCompleted: p.ProfileCompleted,
	}
	return c.JSON(status, echo.Map{"status": "success", "token": tok, "user": user})
}

func (s *Server) verify(c echo.Context) error {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	switch mode {
	case ValidateReject:
		return c.JSON(http.StatusOK, echo.Map{"status": "success", "valid": false})
	case ValidateUnauthorized:
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": "error", "message": "expired"})
	case ValidateServerError:
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error"})
	case ValidateMalformed:
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte("<html>"))
	case ValidateHang:
		<-c.Request().Context().Done()
		return nil
	}

	var req struct {
		UserID string `json:"userId"`
	}
	_ = c.Bind(&req)
	sub, ok := s.subject(c)
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "valid": ok && sub == req.UserID})
}

func (s *Server) logout(c echo.Context) error {
	if _, ok := s.subject(c); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": "error"})
	}
	s.mu.Lock()
	s.revoked[bearer(c)] = true
	s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}

func (s *Server) getEmployee(c echo.Context) error {
	sub, ok := s.subject(c)
	if !ok || sub != c.Param("id") {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": "error"})
	}
	p, found := s.Profile(sub)
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"status": "error", "message": "not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "employee": p})
}

func (s *Server) updateEmployee(c echo.Context) error {
	sub, ok := s.subject(c)
	if !ok || sub != c.Param("id") {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": "error"})
	}
	var body ports.ProfileUpdatePayload
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "invalid body"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, found := s.accounts[s.byID[sub]]
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"status": "error", "message": "not found"})
	}
	p := &acc.profile
	if body.FirstName != "" {
		p.FirstName = body.FirstName
	}
	if body.LastName != "" {
		p.LastName = body.LastName
	}
	if body.Department != "" {
		p.Department = body.Department
	}
	if body.Position != "" {
		p.Position = body.Position
	}
	p.PersonalInfo = &ports.PersonalInfo{
		MiddleName:  body.MiddleName,
		Suffix:      body.Suffix,
		BirthDate:   body.BirthDate,
		Gender:      body.Gender,
		CivilStatus: body.CivilStatus,
		Phone:       body.Phone,
		Address:     body.Address,
	}
	if body.Family != nil {
		p.FamilyInfo = body.Family
	}
	if body.Education != nil {
		p.EducationInfo = body.Education
	}
	p.ProfileCompleted = true
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "Profile updated"})
}

// subject returns the user id of a valid, unrevoked bearer token.
func (s *Server) subject(c echo.Context) (string, bool) {
	raw := bearer(c)
	if raw == "" {
		return "", false
	}
	s.mu.Lock()
	revoked := s.revoked[raw]
	s.mu.Unlock()
	if revoked {
		return "", false
	}

	claims := jwt.RegisteredClaims{}
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tkn.Valid {
		return "", false
	}
	return claims.Subject, true
}

func bearer(c echo.Context) string {
	parts := strings.SplitN(c.Request().Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func sign(id string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		// Distinct tokens per issue so revoking one does not revoke the next.
		ID: strconv.FormatInt(now.UnixNano(), 36),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
