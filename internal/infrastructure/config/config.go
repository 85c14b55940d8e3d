package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries everything the client needs to reach its collaborators.
// Values come from the environment, optionally seeded from a .env file.
type Config struct {
	// ServerURL is the HTTP base of the discussion platform, e.g.
	// http://127.0.0.1:8080. The websocket URL is derived from it.
	ServerURL string
	// Username is the local participant identity.
	Username string
	// Token is an optional pre-issued bearer credential. When empty the
	// client logs in with Password.
	Token    string
	Password string
	// ArchiveDir is where ended discussions are persisted locally.
	ArchiveDir string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; a missing file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ServerURL:  getenv("PARLEY_SERVER_URL", "http://127.0.0.1:8080"),
		Username:   strings.TrimSpace(os.Getenv("PARLEY_USERNAME")),
		Token:      strings.TrimSpace(os.Getenv("PARLEY_TOKEN")),
		Password:   os.Getenv("PARLEY_PASSWORD"),
		ArchiveDir: getenv("PARLEY_ARCHIVE_DIR", defaultArchiveDir()),
	}
	if cfg.Username == "" {
		return Config{}, errors.New("config: PARLEY_USERNAME is not set")
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return cfg, nil
}

// WebsocketURL converts the HTTP base into the ws:// (or wss://) equivalent
// for the given path.
func (c Config) WebsocketURL(path string) string {
	base := c.ServerURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultArchiveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".parley/archive"
	}
	return filepath.Join(home, ".parley", "archive")
}
