package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"intakedesk/internal/identity"
)

// SessionFile keeps one admin session on disk between runs.
type SessionFile struct {
	Path string
	now  func() time.Time
}

type savedSession struct {
	Session   identity.Session `json:"session"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func (f SessionFile) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

// Load returns the saved session. A missing or expired session reports false.
func (f SessionFile) Load() (identity.Session, bool, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return identity.Session{}, false, nil
	}
	if err != nil {
		return identity.Session{}, false, fmt.Errorf("reading session file: %w", err)
	}
	var saved savedSession
	if err := json.Unmarshal(raw, &saved); err != nil {
		return identity.Session{}, false, fmt.Errorf("decoding session file %s: %w", f.Path, err)
	}
	if saved.Session.AccessToken == "" {
		return identity.Session{}, false, nil
	}
	if !saved.ExpiresAt.IsZero() && !f.clock().Before(saved.ExpiresAt) {
		return identity.Session{}, false, nil
	}
	saved.Session.ExpiresAt = saved.ExpiresAt
	return saved.Session, true, nil
}

// Save writes sess readable by the owner only.
func (f SessionFile) Save(sess identity.Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	raw, err := json.Marshal(savedSession{Session: sess, ExpiresAt: sess.ExpiresAt})
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.Path, raw, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// Clear forgets the saved session.
func (f SessionFile) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
