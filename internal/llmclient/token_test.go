package llmclient

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeToken(t *testing.T, path string, tok oauthToken) {
	t.Helper()
	data, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestTokenSourceReturnsUnexpiredToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	writeToken(t, path, oauthToken{AccessToken: "live-token", ExpiresAt: time.Now().Add(time.Hour).Unix()})

	ts := newTokenSource(path, nil)
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "live-token" {
		t.Fatalf("expected live-token, got %s", tok)
	}
}

func TestTokenSourceRefreshesWithin60Seconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	writeToken(t, path, oauthToken{
		AccessToken:  "stale-token",
		RefreshToken: "refresh-xyz",
		ExpiresAt:    time.Now().Add(30 * time.Second).Unix(),
	})

	var refreshedWith string
	ts := newTokenSource(path, func(refreshToken string) (string, int64, error) {
		refreshedWith = refreshToken
		return "fresh-token", time.Now().Add(time.Hour).Unix(), nil
	})

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "fresh-token" {
		t.Fatalf("expected refreshed token, got %s", tok)
	}
	if refreshedWith != "refresh-xyz" {
		t.Fatalf("expected refresh called with stored refresh token, got %s", refreshedWith)
	}

	persisted, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var onDisk oauthToken
	if err := json.Unmarshal(persisted, &onDisk); err != nil {
		t.Fatalf("unmarshal persisted: %v", err)
	}
	if onDisk.AccessToken != "fresh-token" {
		t.Fatalf("expected refreshed token persisted to disk, got %+v", onDisk)
	}
}

func TestTokenSourceWithoutRefreshFuncErrorsOnExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	writeToken(t, path, oauthToken{AccessToken: "stale-token", ExpiresAt: time.Now().Add(-time.Minute).Unix()})

	ts := newTokenSource(path, nil)
	if _, err := ts.Token(); err == nil {
		t.Fatalf("expected error when token expired and no refresh function configured")
	}
}

func TestTokenSourceMissingFile(t *testing.T) {
	ts := newTokenSource(filepath.Join(t.TempDir(), "missing.json"), nil)
	if _, err := ts.Token(); err == nil {
		t.Fatalf("expected error for missing token file")
	}
}
