package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"time"
)

// TTSConfig configures the text-to-speech provider.
type TTSConfig struct {
	Provider      string // "openai" | "elevenlabs"
	APIBase       string
	APIKey        string
	Model         string
	Voice         string
	PlayerCommand string // local command fed the MP3 path, e.g. "mpv" or "afplay"
	Logger        *slog.Logger
}

// TTS synthesizes speech over an HTTP API and plays it through a local
// audio player. Playback failures surface as errors; the dispatcher
// swallows them so narration never blocks rendering.
type TTS struct {
	provider string
	apiBase  string
	apiKey   string
	model    string
	voice    string
	player   string
	client   *http.Client
	logger   *slog.Logger
}

func NewTTS(cfg TTSConfig) *TTS {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.PlayerCommand == "" {
		cfg.PlayerCommand = "mpv"
	}
	return &TTS{
		provider: cfg.Provider,
		apiBase:  cfg.APIBase,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		voice:    cfg.Voice,
		player:   cfg.PlayerCommand,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Speak synthesizes text and plays the resulting audio.
func (t *TTS) Speak(ctx context.Context, text string) error {
	audio, err := t.synthesize(ctx, text)
	if err != nil {
		return err
	}
	defer audio.Close()
	return t.play(ctx, audio)
}

func (t *TTS) synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	switch t.provider {
	case "openai":
		return t.synthesizeOpenAI(ctx, text)
	case "elevenlabs":
		return t.synthesizeElevenLabs(ctx, text)
	default:
		return nil, fmt.Errorf("unsupported TTS provider: %s", t.provider)
	}
}

func (t *TTS) synthesizeOpenAI(ctx context.Context, text string) (io.ReadCloser, error) {
	payload, err := json.Marshal(map[string]string{
		"model": t.model,
		"input": text,
		"voice": t.voice,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiBase+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("TTS error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return resp.Body, nil
}

func (t *TTS) synthesizeElevenLabs(ctx context.Context, text string) (io.ReadCloser, error) {
	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": "eleven_monolingual_v1",
	})
	if err != nil {
		return nil, err
	}

	url := "https://api.elevenlabs.io/v1/text-to-speech/" + t.voice
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ElevenLabs request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("ElevenLabs error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return resp.Body, nil
}

func (t *TTS) play(ctx context.Context, audio io.Reader) error {
	tmp, err := os.CreateTemp("", "voxdesk-tts-*.mp3")
	if err != nil {
		return fmt.Errorf("create temp audio: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, audio); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp audio: %w", err)
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, t.player, tmp.Name())
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play audio via %s: %w", t.player, err)
	}
	return nil
}
