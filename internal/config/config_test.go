package config

import (
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MissingBackendURL(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.BaseURL = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty backend.baseUrl")
	}
}

func TestValidate_SpeechMode(t *testing.T) {
	cfg := Defaults()
	cfg.Speech.Mode = "desktop"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown speech mode")
	}

	cfg.Speech.Mode = "browser"
	if err := Validate(cfg); err != nil {
		t.Fatalf("browser mode should be valid: %v", err)
	}
}

func TestValidate_NegativeReprompts(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.MaxReprompts = -1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for negative maxReprompts")
	}
}

func TestValidate_WebSocketPort(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.WebSocket.Enabled = true
	cfg.Channels.WebSocket.Port = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port 0 with websocket enabled")
	}
}

// --- Env expansion ---

func TestExpandEnvVars_Set(t *testing.T) {
	t.Setenv("VOXDESK_TEST_KEY", "secret123")
	out := ExpandEnvVars(`{"apiKey": "${VOXDESK_TEST_KEY}"}`)
	if out != `{"apiKey": "secret123"}` {
		t.Errorf("unexpected expansion: %s", out)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	os.Unsetenv("VOXDESK_TEST_UNSET")
	out := ExpandEnvVars("${VOXDESK_TEST_UNSET:-http://localhost:5000}")
	if out != "http://localhost:5000" {
		t.Errorf("expected default value, got %s", out)
	}
}

func TestExpandEnvVars_UnsetWithoutDefault(t *testing.T) {
	os.Unsetenv("VOXDESK_TEST_UNSET")
	out := ExpandEnvVars("${VOXDESK_TEST_UNSET}")
	if out != "${VOXDESK_TEST_UNSET}" {
		t.Errorf("unset var without default should stay literal, got %s", out)
	}
}

// --- Load / Save ---

func TestLoad_SubstitutesEnv(t *testing.T) {
	t.Setenv("VOXDESK_TEST_URL", "http://backend:9000")

	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"backend": {"baseUrl": "${VOXDESK_TEST_URL}"}, "speech": {"mode": "api"}}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://backend:9000" {
		t.Errorf("baseUrl = %s", cfg.Backend.BaseURL)
	}
	// Fields absent from the file keep defaults.
	if cfg.Engine.MaxReprompts != 3 {
		t.Errorf("maxReprompts = %d, want default 3", cfg.Engine.MaxReprompts)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"backend": {"baseUrl": "http://x"}, "speech": {"mode": "nope"}}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Defaults()
	cfg.Backend.BaseURL = "http://example.test:5000"
	cfg.Engine.SpeakMaxChars = 140
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Backend.BaseURL != cfg.Backend.BaseURL {
		t.Errorf("baseUrl = %s", loaded.Backend.BaseURL)
	}
	if loaded.Engine.SpeakMaxChars != 140 {
		t.Errorf("speakMaxChars = %d", loaded.Engine.SpeakMaxChars)
	}
}
