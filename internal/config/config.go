package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for a voxdesk session.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Backend  BackendConfig  `json:"backend"`
	Speech   SpeechConfig   `json:"speech"`
	Engine   EngineConfig   `json:"engine"`
	Channels ChannelsConfig `json:"channels"`
	History  HistoryConfig  `json:"history"`
}

type GeneralConfig struct {
	LogLevel    string `json:"logLevel"`
	LogFile     string `json:"logFile,omitempty"`
	LexiconPath string `json:"lexiconPath,omitempty"` // optional lexicon.yaml overrides
}

// BackendConfig points at the remote command-interpretation service.
type BackendConfig struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey,omitempty"`
}

// SpeechConfig selects and configures the speech-to-text and
// text-to-speech hosts. Mode "api" uses the Whisper/TTS HTTP providers;
// mode "browser" drives the Web Speech API through headless Chrome.
type SpeechConfig struct {
	Mode    string        `json:"mode"` // "api" | "browser"
	Whisper WhisperConfig `json:"whisper"`
	TTS     TTSConfig     `json:"tts"`
	Browser BrowserConfig `json:"browser"`
}

type WhisperConfig struct {
	APIBase  string `json:"apiBase,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

type TTSConfig struct {
	Provider      string `json:"provider,omitempty"` // "openai" | "elevenlabs"
	APIBase       string `json:"apiBase,omitempty"`
	APIKey        string `json:"apiKey,omitempty"`
	Model         string `json:"model,omitempty"`
	Voice         string `json:"voice,omitempty"`
	PlayerCommand string `json:"playerCommand,omitempty"` // local audio player for api mode
}

type BrowserConfig struct {
	ProfileDir string `json:"profileDir,omitempty"`
	Headless   bool   `json:"headless"`
	Language   string `json:"language,omitempty"`
}

// EngineConfig tunes the interaction engine itself.
type EngineConfig struct {
	MaxReprompts  int `json:"maxReprompts"`  // confirmation re-prompt bound
	SpeakMaxChars int `json:"speakMaxChars"` // speak-back length ceiling
}

type ChannelsConfig struct {
	CLI       CLIConfig       `json:"cli"`
	Telegram  TelegramConfig  `json:"telegram"`
	WebSocket WebSocketConfig `json:"websocket"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom,omitempty"`
}

// WebSocketConfig configures the real-time transcription push endpoint.
type WebSocketConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Path    string `json:"path,omitempty"`
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

// DefaultConfigDir returns the default config directory (~/.voxdesk).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".voxdesk"
	}
	return filepath.Join(home, ".voxdesk")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.LogFile = expandPath(cfg.General.LogFile)
	cfg.General.LexiconPath = expandPath(cfg.General.LexiconPath)
	cfg.History.DBPath = expandPath(cfg.History.DBPath)
	cfg.Speech.Browser.ProfileDir = expandPath(cfg.Speech.Browser.ProfileDir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// Validate checks invariants the engine depends on.
func Validate(cfg *Config) error {
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseUrl is required")
	}
	if cfg.Speech.Mode != "api" && cfg.Speech.Mode != "browser" {
		return fmt.Errorf("speech.mode must be \"api\" or \"browser\", got %q", cfg.Speech.Mode)
	}
	if cfg.Engine.MaxReprompts < 0 {
		return fmt.Errorf("engine.maxReprompts must not be negative")
	}
	if cfg.Channels.WebSocket.Enabled && cfg.Channels.WebSocket.Port <= 0 {
		return fmt.Errorf("channels.websocket.port must be positive when enabled")
	}
	return nil
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
