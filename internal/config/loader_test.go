package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestHome points HOME at a temp dir and clears newsd variables.
func setupTestHome(t *testing.T) string {
	t.Helper()

	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	for _, key := range []string{"AUTH_JWT_SECRET", "STORE_MONGO_URI", "STORE_DRIVER", "SERVER_HTTP_PORT", "NEWSAPI_API_KEY"} {
		unsetEnv(t, key)
	}
	return tmpHome
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if original, ok := os.LookupEnv(key); ok {
		t.Cleanup(func() { os.Setenv(key, original) })
	}
	os.Unsetenv(key)
}

func writeConfig(t *testing.T, home, content string, perm os.FileMode) string {
	t.Helper()

	dir := filepath.Join(home, ".config", "newsd")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	home := setupTestHome(t)

	path := writeConfig(t, home, `server:
  http_port: 8181
auth:
  jwt_secret: from-file
  token_ttl: 24h
newsapi:
  timeout: 3s
`, 0600)

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret.Value() != "from-file" {
		t.Errorf("Auth.JWTSecret not loaded from file")
	}
	if cfg.Auth.TokenTTL.Duration() != 24*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 24h", cfg.Auth.TokenTTL.Duration())
	}
	if cfg.NewsAPI.Timeout.Duration() != 3*time.Second {
		t.Errorf("NewsAPI.Timeout = %v, want 3s", cfg.NewsAPI.Timeout.Duration())
	}
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	home := setupTestHome(t)

	path := writeConfig(t, home, `server:
  http_port: 8181
auth:
  jwt_secret: from-file
`, 0600)

	t.Setenv("SERVER_HTTP_PORT", "9292")
	t.Setenv("NEWSAPI_API_KEY", "env-key")

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Server.Port != 9292 {
		t.Errorf("Server.Port = %d, want 9292 from env", cfg.Server.Port)
	}
	if cfg.NewsAPI.APIKey.Value() != "env-key" {
		t.Errorf("NewsAPI.APIKey not loaded from env")
	}
}

func TestLoadWithFile_MissingFileUsesEnv(t *testing.T) {
	setupTestHome(t)
	t.Setenv("AUTH_JWT_SECRET", "env-secret")

	cfg, err := LoadWithFile("")
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("Store.Driver = %q, want memory", cfg.Store.Driver)
	}
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	home := setupTestHome(t)
	path := writeConfig(t, home, "auth:\n  jwt_secret: x\n", 0644)

	if _, err := LoadWithFile(path); err == nil {
		t.Error("expected error for world-readable config file")
	}
}

func TestLoadWithFile_PathOutsideAllowedDirs(t *testing.T) {
	setupTestHome(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  jwt_secret: x\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWithFile(path); err == nil {
		t.Error("expected error for config outside allowed directories")
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SERVER_HTTP_PORT": "server.http_port",
		"NEWSAPI_API_KEY":  "newsapi.api_key",
		"STORE_MONGO_URI":  "store.mongo_uri",
		"PATH":             "",
		"HOME_DIR":         "",
		"SERVER":           "",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
