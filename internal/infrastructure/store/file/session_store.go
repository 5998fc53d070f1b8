// Package file keeps the session on local disk, one JSON document per
// namespace. It is the default backend for a single-user workstation.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sdca/hris-portal/internal/core/domain"
)

// document is the on-disk shape. user holds the raw JSON user record so a
// damaged record is reported as corrupt rather than as a missing session.
type document struct {
	User  json.RawMessage `json:"user"`
	Token string          `json:"token"`
}

type SessionStore struct {
	mu   sync.Mutex
	dir  string
	path string
}

// NewSessionStore stores the session at <dir>/<namespace>.session.json.
func NewSessionStore(dir, namespace string) (*SessionStore, error) {
	if namespace == "" {
		namespace = "default"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &SessionStore{dir: dir, path: filepath.Join(dir, namespace+".session.json")}, nil
}

func (s *SessionStore) Load(_ context.Context) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("read session: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrSessionCorrupt, err)
	}
	return domain.DecodeSession(string(doc.User), doc.Token)
}

// Save writes to a temp file and renames it over the old one, so a crash
// leaves either the previous session or the new one.
func (s *SessionStore) Save(_ context.Context, sess domain.Session) error {
	user, token, err := domain.EncodeSession(sess)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(document{User: json.RawMessage(user), Token: token})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Ping verifies the directory is still there and writable.
func (s *SessionStore) Ping(_ context.Context) error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("session dir not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
