package config

import "testing"

func TestWebsocketURL(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"http://127.0.0.1:8080", "/ws/chat/3", "ws://127.0.0.1:8080/ws/chat/3"},
		{"https://parley.example.com", "roomUpdates", "wss://parley.example.com/roomUpdates"},
	}
	for _, tc := range cases {
		c := Config{ServerURL: tc.base}
		if got := c.WebsocketURL(tc.path); got != tc.want {
			t.Errorf("WebsocketURL(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
	}
}

func TestLoadRequiresUsername(t *testing.T) {
	t.Setenv("PARLEY_USERNAME", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error without a username")
	}

	t.Setenv("PARLEY_USERNAME", "amy")
	t.Setenv("PARLEY_SERVER_URL", "http://localhost:9999/")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "http://localhost:9999" {
		t.Errorf("trailing slash not trimmed: %q", cfg.ServerURL)
	}
}
