package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Credentials holds the three SMTP variables read from .env (spec.md
// §6). All three must be present to arm the SMTP notifier.
type Credentials struct {
	SMTPUser      string
	SMTPPassword  string
	SMTPRecipient string

	// LLMAPIKey is the optional static bearer-style credential for the
	// LLM collaborator (spec.md §4.8). Empty means the llmclient falls
	// back to OAuth token-file auth, if configured.
	LLMAPIKey string
}

// Present reports whether all three SMTP credential fields were found.
func (c Credentials) Present() bool {
	return c.SMTPUser != "" && c.SMTPPassword != "" && c.SMTPRecipient != ""
}

// LoadCredentials reads ${XDG_CONFIG_HOME}/sentinel/.env for
// SENTINEL_SMTP_USER, SENTINEL_SMTP_PASSWORD, SENTINEL_SMTP_RECIPIENT. A
// missing file yields a zero Credentials, not an error, mirroring
// Load's treatment of a missing config.toml.
func LoadCredentials() (Credentials, error) {
	dir, err := Dir()
	if err != nil {
		return Credentials{}, err
	}
	path := filepath.Join(dir, ".env")

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil
		}
		return Credentials{}, err
	}
	defer f.Close()

	values := parseEnvFile(f)
	return Credentials{
		SMTPUser:      values["SENTINEL_SMTP_USER"],
		SMTPPassword:  values["SENTINEL_SMTP_PASSWORD"],
		SMTPRecipient: values["SENTINEL_SMTP_RECIPIENT"],
		LLMAPIKey:     values["SENTINEL_LLM_API_KEY"],
	}, nil
}

// parseEnvFile reads simple KEY=VALUE lines, skipping blanks and
// comments, with optional surrounding quotes on the value.
func parseEnvFile(f *os.File) map[string]string {
	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		out[key] = value
	}
	return out
}
