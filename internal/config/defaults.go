package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:5000",
		},
		Speech: SpeechConfig{
			Mode: "api",
			Whisper: WhisperConfig{
				APIBase: "https://api.groq.com/openai/v1",
				Model:   "whisper-large-v3",
			},
			TTS: TTSConfig{
				Provider: "openai",
				APIBase:  "https://api.openai.com/v1",
				Model:    "tts-1",
				Voice:    "alloy",
			},
			Browser: BrowserConfig{
				Headless: true,
				Language: "en-US",
			},
		},
		Engine: EngineConfig{
			MaxReprompts:  3,
			SpeakMaxChars: 280,
		},
		Channels: ChannelsConfig{
			CLI: CLIConfig{
				Enabled: true,
			},
			Telegram: TelegramConfig{
				Enabled: false,
			},
			WebSocket: WebSocketConfig{
				Enabled: false,
				Host:    "127.0.0.1",
				Port:    8765,
				Path:    "/transcription",
			},
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "~/.voxdesk/history.db",
		},
	}
}
