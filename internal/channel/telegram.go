package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"voxdesk/internal/domain"
)

const telegramMaxMsgLen = 4000

// TelegramConfig configures the Telegram input channel.
type TelegramConfig struct {
	Token       string
	AllowFrom   []string // user IDs as strings; empty allows all
	Transcriber domain.Transcriber // voice notes; nil disables them
	Logger      *slog.Logger
}

// Telegram is an alternate direct-text input channel. Text messages go
// straight to the command pipeline; voice notes are downloaded and
// transcribed first, entering as voice-sourced commands.
type Telegram struct {
	token       string
	allowFrom   []int64
	transcriber domain.Transcriber

	bot    *tgbotapi.BotAPI
	bus    domain.CommandBus
	logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	return &Telegram{
		token:       cfg.Token,
		allowFrom:   allowed,
		transcriber: cfg.Transcriber,
		logger:      cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and polls for updates until ctx is
// cancelled.
func (t *Telegram) Start(ctx context.Context, bus domain.CommandBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected", "username", bot.Self.UserName)

	bus.OnReply("telegram", func(reply domain.OutboundReply) {
		chatID, err := strconv.ParseInt(reply.ChatID, 10, 64)
		if err != nil {
			t.logger.Error("invalid chat ID for telegram reply", "chatID", reply.ChatID, "err", err)
			return
		}
		t.sendMessage(chatID, reply.Text)
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled.
func (t *Telegram) Stop() error { return nil }

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user", "user_id", userID)
		t.sendMessage(chatID, "Unauthorized. Your user ID is not in the allow list.")
		return
	}

	if update.Message.Voice != nil {
		t.handleVoiceNote(ctx, chatID, userID, update.Message.Voice)
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	t.bus.Publish(domain.InboundCommand{
		Channel:   "telegram",
		ChatID:    strconv.FormatInt(chatID, 10),
		SenderID:  strconv.FormatInt(userID, 10),
		Text:      text,
		Source:    domain.SourceTyped,
		Timestamp: time.Unix(int64(update.Message.Date), 0),
	})
}

// handleVoiceNote downloads a voice note and routes it through the
// transcriber before submitting the text as a command.
func (t *Telegram) handleVoiceNote(ctx context.Context, chatID, userID int64, voice *tgbotapi.Voice) {
	if t.transcriber == nil {
		t.sendMessage(chatID, "Voice notes are not enabled.")
		return
	}

	url, err := t.bot.GetFileDirectURL(voice.FileID)
	if err != nil {
		t.logger.Warn("voice note file lookup failed", "err", err)
		t.sendMessage(chatID, "Could not fetch that voice note.")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.logger.Warn("voice note download failed", "err", err)
		t.sendMessage(chatID, "Could not download that voice note.")
		return
	}
	defer resp.Body.Close()

	text, err := t.transcriber.Transcribe(ctx, resp.Body, "note.ogg")
	if err != nil {
		t.logger.Warn("voice note transcription failed", "err", err)
		t.sendMessage(chatID, "Could not transcribe that voice note.")
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		t.sendMessage(chatID, "I couldn't hear anything in that note.")
		return
	}

	t.sendMessage(chatID, "Heard: "+text)
	t.bus.Publish(domain.InboundCommand{
		Channel:   "telegram",
		ChatID:    strconv.FormatInt(chatID, 10),
		SenderID:  strconv.FormatInt(userID, 10),
		Text:      text,
		Source:    domain.SourceVoice,
		Timestamp: time.Now(),
	})
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Telegram) sendMessage(chatID int64, content string) {
	for len(content) > 0 {
		chunk := content
		if len(chunk) > telegramMaxMsgLen {
			chunk = chunk[:telegramMaxMsgLen]
		}
		content = content[len(chunk):]

		msg := tgbotapi.NewMessage(chatID, chunk)
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Warn("telegram send failed", "err", err)
			return
		}
	}
}
