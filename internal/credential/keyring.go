// Package credential keeps session tokens in the operating system's
// keyring so the terminal client stays logged in across runs.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "timetrack"

// ErrNoSession means no token is stored for the server.
var ErrNoSession = errors.New("no stored session")

// Sessions stores one session token per API server.
type Sessions struct {
	ring keyring.Keyring
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/timetrack/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("timetrack-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Open returns Sessions backed by the system keyring.
func Open() (*Sessions, error) {
	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}
	return NewSessions(ring), nil
}

// NewSessions returns Sessions backed by ring.
func NewSessions(ring keyring.Keyring) *Sessions {
	return &Sessions{ring: ring}
}

func sessionKey(serverURL string) string {
	return "session:" + serverURL
}

// Token returns the stored token for serverURL, or ErrNoSession.
func (s *Sessions) Token(serverURL string) (string, error) {
	item, err := s.ring.Get(sessionKey(serverURL))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("getting session for %s: %w", serverURL, err)
	}
	if len(item.Data) == 0 {
		return "", ErrNoSession
	}
	return string(item.Data), nil
}

// Save stores token for serverURL, replacing any previous one.
func (s *Sessions) Save(serverURL, token string) error {
	err := s.ring.Set(keyring.Item{
		Key:   sessionKey(serverURL),
		Data:  []byte(token),
		Label: "timetrack session",
	})
	if err != nil {
		return fmt.Errorf("saving session for %s: %w", serverURL, err)
	}
	return nil
}

// Forget removes the token for serverURL. Forgetting a missing session
// is not an error.
func (s *Sessions) Forget(serverURL string) error {
	err := s.ring.Remove(sessionKey(serverURL))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("removing session for %s: %w", serverURL, err)
	}
	return nil
}
