package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CookieStore persists one cookie header per account.
type CookieStore interface {
	// GetCookies returns the stored cookie header, or "" if none exists.
	GetCookies(ctx context.Context, username string) (string, error)
	// SaveCookies overwrites the stored cookie header.
	SaveCookies(ctx context.Context, username, cookies string) error
	// ClearCookies removes the stored header. Missing entries are not an error.
	ClearCookies(ctx context.Context, username string) error
}

// FileStore keeps snapshots as <dir>/<username>.cookies files holding
// "name=value; name=value" text.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the snapshot file for username.
func (s *FileStore) Path(username string) (string, error) {
	if username == "" || strings.ContainsAny(username, `/\`) || username == "." || username == ".." {
		return "", fmt.Errorf("invalid username %q for session file", username)
	}
	return filepath.Join(s.dir, username+".cookies"), nil
}

// GetCookies implements CookieStore.
func (s *FileStore) GetCookies(_ context.Context, username string) (string, error) {
	path, err := s.Path(username)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveCookies implements CookieStore.
func (s *FileStore) SaveCookies(_ context.Context, username, cookies string) error {
	path, err := s.Path(username)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(cookies), 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// ClearCookies implements CookieStore.
func (s *FileStore) ClearCookies(_ context.Context, username string) error {
	path, err := s.Path(username)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
