package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"voxdesk/internal/domain"
)

const speechBinding = "voxdeskSpeechEvent"
const ttsBinding = "voxdeskTTSEvent"

// BrowserSpeechConfig configures the headless-Chrome speech bridge.
type BrowserSpeechConfig struct {
	ProfileDir string // Chrome user data directory (persists mic permission)
	Headless   bool
	Language   string // BCP-47 tag for recognition, e.g. "en-US"
	Logger     *slog.Logger
}

// BrowserSpeech drives the Web Speech API through Chrome: live
// SpeechRecognition with interim results for the speech channel, and
// speechSynthesis playback for narration. One recognition session per
// Listen call; cancelling the context aborts the session.
type BrowserSpeech struct {
	profileDir string
	headless   bool
	language   string
	logger     *slog.Logger
}

func NewBrowserSpeech(cfg BrowserSpeechConfig) *BrowserSpeech {
	if cfg.ProfileDir == "" {
		home, _ := os.UserHomeDir()
		cfg.ProfileDir = filepath.Join(home, ".voxdesk", "chrome-profile")
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	return &BrowserSpeech{
		profileDir: cfg.ProfileDir,
		headless:   cfg.Headless,
		language:   cfg.Language,
		logger:     cfg.Logger,
	}
}

func (b *BrowserSpeech) Supported() bool { return true }

// speechEvent is the JSON protocol between the injected page script and
// the bridge.
type speechEvent struct {
	Kind string `json:"kind"` // "interim" | "final" | "error" | "end"
	Text string `json:"text,omitempty"`
	Code string `json:"code,omitempty"`
}

// Listen runs one recognition session, forwarding interim results and
// exactly one of final transcript, error, or silent end.
func (b *BrowserSpeech) Listen(ctx context.Context, ev domain.SpeechEvents) error {
	taskCtx, cancel := b.newContext(ctx)
	defer cancel()

	events := make(chan speechEvent, 16)
	chromedp.ListenTarget(taskCtx, func(v interface{}) {
		bc, ok := v.(*runtime.EventBindingCalled)
		if !ok || bc.Name != speechBinding {
			return
		}
		var e speechEvent
		if err := json.Unmarshal([]byte(bc.Payload), &e); err != nil {
			b.logger.Warn("bad speech event payload", "err", err)
			return
		}
		select {
		case events <- e:
		default:
		}
	})

	err := chromedp.Run(taskCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return runtime.AddBinding(speechBinding).Do(ctx)
		}),
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(fmt.Sprintf(recognitionJS, b.language), nil),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil // aborted before the session started
		}
		return fmt.Errorf("start browser recognition: %w", err)
	}

	for {
		select {
		case <-taskCtx.Done():
			// Abort: accumulated transcript is discarded, not committed.
			return nil
		case e := <-events:
			switch e.Kind {
			case "interim":
				if ev.OnInterim != nil {
					ev.OnInterim(e.Text)
				}
			case "final":
				if ev.OnFinal != nil {
					ev.OnFinal(e.Text)
				}
				return nil
			case "error":
				if ev.OnError != nil {
					ev.OnError(mapSpeechError(e.Code), fmt.Errorf("speech recognition: %s", e.Code))
				}
				return nil
			case "end":
				if ev.OnEnd != nil {
					ev.OnEnd()
				}
				return nil
			}
		}
	}
}

// Speak narrates text through speechSynthesis and waits for playback to
// finish.
func (b *BrowserSpeech) Speak(ctx context.Context, text string) error {
	taskCtx, cancel := b.newContext(ctx)
	defer cancel()

	done := make(chan struct{}, 1)
	chromedp.ListenTarget(taskCtx, func(v interface{}) {
		if bc, ok := v.(*runtime.EventBindingCalled); ok && bc.Name == ttsBinding {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	quoted, err := json.Marshal(text)
	if err != nil {
		return err
	}
	err = chromedp.Run(taskCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return runtime.AddBinding(ttsBinding).Do(ctx)
		}),
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(fmt.Sprintf(synthesisJS, quoted), nil),
	)
	if err != nil {
		return fmt.Errorf("start browser synthesis: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-taskCtx.Done():
		return taskCtx.Err()
	}
}

// newContext creates a fresh chromedp context on the bridge profile. The
// fake-UI flag grants the microphone permission without a prompt.
func (b *BrowserSpeech) newContext(parent context.Context) (context.Context, context.CancelFunc) {
	if err := os.MkdirAll(b.profileDir, 0o755); err != nil {
		b.logger.Error("cannot create chrome profile dir", "dir", b.profileDir, "err", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(b.profileDir),
		chromedp.Flag("use-fake-ui-for-media-stream", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	)
	if b.headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	return taskCtx, func() {
		taskCancel()
		allocCancel()
	}
}

func mapSpeechError(code string) domain.SpeechErrorCode {
	switch code {
	case "no-speech":
		return domain.SpeechErrNoSpeech
	case "audio-capture":
		return domain.SpeechErrAudioCapture
	case "not-allowed", "service-not-allowed":
		return domain.SpeechErrNotAllowed
	default:
		return domain.SpeechErrOther
	}
}

// recognitionJS runs one non-continuous SpeechRecognition session and
// reports every event through the bound callback. %s is the language tag.
const recognitionJS = `(() => {
	const emit = (e) => window.` + speechBinding + `(JSON.stringify(e));
	const R = window.SpeechRecognition || window.webkitSpeechRecognition;
	if (!R) { emit({kind: "error", code: "other"}); return; }
	const r = new R();
	r.lang = "%s";
	r.interimResults = true;
	r.continuous = false;
	let finished = false;
	r.onresult = (e) => {
		for (let i = e.resultIndex; i < e.results.length; i++) {
			const res = e.results[i];
			const text = res[0].transcript;
			if (res.isFinal) { finished = true; emit({kind: "final", text: text}); }
			else { emit({kind: "interim", text: text}); }
		}
	};
	r.onerror = (e) => { finished = true; emit({kind: "error", code: e.error}); };
	r.onend = () => { if (!finished) emit({kind: "end"}); };
	r.start();
})()`

// synthesisJS speaks one utterance and signals completion. %s is the
// JSON-quoted text.
const synthesisJS = `(() => {
	const u = new SpeechSynthesisUtterance(%s);
	u.onend = () => window.` + ttsBinding + `("done");
	u.onerror = () => window.` + ttsBinding + `("error");
	speechSynthesis.speak(u);
})()`
