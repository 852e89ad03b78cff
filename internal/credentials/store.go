// Package credentials reads the saved browser authentication used to reach
// the remote workspace.
//
// The material is a browser storage-state file (cookies plus per-origin local
// storage) written by the login helper. To the rest of the sidecar it has two
// observable properties only: present, and structurally valid. Nothing outside
// the login flow writes to the credential directory.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/automeetsslide/decksidecar/internal/errors"
)

// SessionCookie must be present and unexpired for the tokens to be valid.
const SessionCookie = "SID"

// csrfKey is looked up in cookies and local storage.
const csrfKey = "SNlM0e"

// Paths is the resolved set of credential locations.
type Paths struct {
	Dir            string
	StorageFile    string
	BrowserProfile string
}

// Cookie is one browser cookie from the storage state.
type Cookie struct {
	Name    string  `json:"name"`
	Value   string  `json:"value"`
	Domain  string  `json:"domain"`
	Path    string  `json:"path"`
	Expires float64 `json:"expires"` // unix seconds; -1 for session cookies
}

type storageItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type origin struct {
	Origin       string        `json:"origin"`
	LocalStorage []storageItem `json:"localStorage"`
}

type storageState struct {
	Cookies []Cookie `json:"cookies"`
	Origins []origin `json:"origins"`
}

// Tokens is the authentication material extracted from the storage state.
type Tokens struct {
	Cookies   []Cookie
	SessionID string
	CSRF      string
}

// CookieHeader renders all cookies as a Cookie request header value.
func (t *Tokens) CookieHeader() string {
	pairs := make([]string, 0, len(t.Cookies))
	for _, c := range t.Cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}

// Store gives read access to the credential material at fixed paths.
type Store struct {
	paths Paths
	now   func() time.Time
}

// NewStore creates a Store over the given paths.
func NewStore(paths Paths) *Store {
	return &Store{paths: paths, now: time.Now}
}

// Paths returns the locations the store reads.
func (s *Store) Paths() Paths {
	return s.paths
}

// Exists reports whether the storage file is present.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.paths.StorageFile)
	return err == nil && info.Mode().IsRegular()
}

// Load parses the storage file and returns its tokens. Every failure wraps
// errors.ErrNotAuthenticated so callers can tell the user to run login.
func (s *Store) Load() (*Tokens, error) {
	data, err := os.ReadFile(s.paths.StorageFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: storage file not found: %s", errors.ErrNotAuthenticated, s.paths.StorageFile)
		}
		return nil, fmt.Errorf("%w: reading storage file: %v", errors.ErrNotAuthenticated, err)
	}

	var state storageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: storage file is not valid JSON: %v", errors.ErrNotAuthenticated, err)
	}
	if len(state.Cookies) == 0 {
		return nil, fmt.Errorf("%w: storage file has no cookies", errors.ErrNotAuthenticated)
	}

	tokens := &Tokens{Cookies: state.Cookies}
	now := float64(s.now().Unix())
	for _, c := range state.Cookies {
		switch c.Name {
		case SessionCookie:
			if c.Expires > 0 && c.Expires < now {
				return nil, fmt.Errorf("%w: session cookie expired", errors.ErrNotAuthenticated)
			}
			tokens.SessionID = c.Value
		case csrfKey:
			tokens.CSRF = c.Value
		}
	}
	if tokens.SessionID == "" {
		return nil, fmt.Errorf("%w: session cookie %s missing", errors.ErrNotAuthenticated, SessionCookie)
	}

	if tokens.CSRF == "" {
		for _, o := range state.Origins {
			for _, item := range o.LocalStorage {
				if item.Name == csrfKey {
					tokens.CSRF = item.Value
				}
			}
		}
	}

	return tokens, nil
}

// Check reports whether valid tokens are available.
func (s *Store) Check() error {
	_, err := s.Load()
	return err
}

// EnsureDirs creates the credential and browser-profile directories with
// owner-only permissions. Only the login flow calls this.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.paths.Dir, s.paths.BrowserProfile} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		if err := os.Chmod(dir, 0700); err != nil {
			return fmt.Errorf("failed to restrict %s: %w", dir, err)
		}
	}
	return nil
}

// Secure restricts the storage file to its owner. Only the login flow calls this.
func (s *Store) Secure() error {
	if err := os.Chmod(s.paths.StorageFile, 0600); err != nil {
		return fmt.Errorf("failed to restrict storage file: %w", err)
	}
	return nil
}

// Preview returns the first n characters of a token, for progress messages.
func Preview(token string, n int) string {
	if len(token) <= n {
		return token
	}
	return token[:n] + "..."
}
