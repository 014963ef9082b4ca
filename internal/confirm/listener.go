package confirm

import (
	"context"
	"log/slog"
	"strings"

	"voxdesk/internal/domain"
)

// Listener is the restricted speech channel scoped to yes/no/cancel
// utterances. It is single-shot and non-continuous: one final transcript
// per invocation, never interim updates.
type Listener struct {
	rec    domain.Recognizer
	logger *slog.Logger
}

func NewListener(rec domain.Recognizer, logger *slog.Logger) *Listener {
	return &Listener{rec: rec, logger: logger}
}

// Available reports whether a voice confirmation path exists at all.
func (l *Listener) Available() bool {
	return l != nil && l.rec != nil && l.rec.Supported()
}

// ListenOnce runs one recognition session and returns the normalized
// final transcript. A silent end returns ("", nil), which the state
// machine treats as an unintelligible utterance. A host-level error is
// returned as-is; the caller falls back to typed input and never retries
// voice automatically.
func (l *Listener) ListenOnce(ctx context.Context) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	settle := func(o outcome) {
		select {
		case done <- o:
		default:
		}
	}

	err := l.rec.Listen(ctx, domain.SpeechEvents{
		OnFinal: func(text string) {
			settle(outcome{text: strings.ToLower(strings.TrimSpace(text))})
		},
		OnError: func(code domain.SpeechErrorCode, err error) {
			l.logger.Warn("confirmation listener error", "code", code, "err", err)
			settle(outcome{err: err})
		},
		OnEnd: func() {
			settle(outcome{})
		},
	})
	if err != nil {
		return "", err
	}

	select {
	case o := <-done:
		return o.text, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
