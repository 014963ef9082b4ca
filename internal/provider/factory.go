package provider

import (
	"fmt"
	"log/slog"

	"voxdesk/internal/config"
	"voxdesk/internal/domain"
)

// SpeechHost bundles the speech capabilities for one session. In "api"
// mode there is no live recognizer: microphone capture needs a host
// environment, so voice input arrives via the push channel or recorded
// voice notes, and the main adapter reports itself unsupported. In
// "browser" mode the Chrome bridge provides live recognition and
// synthesis; Whisper still transcribes recorded audio.
type SpeechHost struct {
	Recognizer  domain.Recognizer // may be nil
	Speaker     domain.Speaker
	Transcriber domain.Transcriber
}

// NewSpeechHost builds the speech providers for the configured mode.
func NewSpeechHost(cfg config.SpeechConfig, logger *slog.Logger) (*SpeechHost, error) {
	whisper := NewWhisper(WhisperConfig{
		APIBase:  cfg.Whisper.APIBase,
		APIKey:   cfg.Whisper.APIKey,
		Model:    cfg.Whisper.Model,
		Language: cfg.Whisper.Language,
		Logger:   logger,
	})

	switch cfg.Mode {
	case "api":
		return &SpeechHost{
			Speaker: NewTTS(TTSConfig{
				Provider:      cfg.TTS.Provider,
				APIBase:       cfg.TTS.APIBase,
				APIKey:        cfg.TTS.APIKey,
				Model:         cfg.TTS.Model,
				Voice:         cfg.TTS.Voice,
				PlayerCommand: cfg.TTS.PlayerCommand,
				Logger:        logger,
			}),
			Transcriber: whisper,
		}, nil

	case "browser":
		bridge := NewBrowserSpeech(BrowserSpeechConfig{
			ProfileDir: cfg.Browser.ProfileDir,
			Headless:   cfg.Browser.Headless,
			Language:   cfg.Browser.Language,
			Logger:     logger,
		})
		return &SpeechHost{
			Recognizer:  bridge,
			Speaker:     bridge,
			Transcriber: whisper,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported speech mode: %s", cfg.Mode)
	}
}
