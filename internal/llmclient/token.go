package llmclient

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// oauthToken is the on-disk shape of the token file (spec.md §4.8:
// "OAuth access token with auto-refresh (token file at a known path;
// refresh when expires_at − now < 60s)"). RefreshToken is carried
// through so a refresh call can mint a new AccessToken without user
// interaction.
type oauthToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// refreshEarlyBy is how far ahead of expiry a refresh is triggered.
const refreshEarlyBy = 60 * time.Second

// tokenSource serves a valid bearer token, refreshing the on-disk token
// file when it is within refreshEarlyBy of expiring. Safe for concurrent
// use; Stream calls may overlap.
type tokenSource struct {
	path    string
	refresh RefreshFunc

	mu    sync.Mutex
	token oauthToken
}

// RefreshFunc exchanges a refresh token for a new access token. Supplied
// by the caller since the refresh endpoint is provider-specific; nil
// means an expired token file simply produces an error.
type RefreshFunc func(refreshToken string) (accessToken string, expiresAt int64, err error)

func newTokenSource(path string, refresh RefreshFunc) *tokenSource {
	return &tokenSource{path: path, refresh: refresh}
}

// Token returns a currently-valid access token, reading the token file
// lazily and refreshing it in place if it is near expiry.
func (s *tokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.AccessToken == "" {
		if err := s.load(); err != nil {
			return "", err
		}
	}

	if time.Until(time.Unix(s.token.ExpiresAt, 0)) < refreshEarlyBy {
		if err := s.doRefresh(); err != nil {
			return "", err
		}
	}
	return s.token.AccessToken, nil
}

func (s *tokenSource) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("llmclient: reading token file: %w", err)
	}
	var tok oauthToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return fmt.Errorf("llmclient: parsing token file: %w", err)
	}
	s.token = tok
	return nil
}

func (s *tokenSource) doRefresh() error {
	if s.refresh == nil {
		return fmt.Errorf("llmclient: token expired and no refresh function configured")
	}
	accessToken, expiresAt, err := s.refresh(s.token.RefreshToken)
	if err != nil {
		return fmt.Errorf("llmclient: refreshing token: %w", err)
	}
	s.token.AccessToken = accessToken
	s.token.ExpiresAt = expiresAt
	return s.save()
}

func (s *tokenSource) save() error {
	data, err := json.Marshal(s.token)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
