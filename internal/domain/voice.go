package domain

// VoiceState is the lifecycle of a speech adapter. Exactly one adapter
// (main or confirmation) owns a non-idle state at a time; the exclusion is
// enforced by the input-authority token, not by locking.
type VoiceState int

const (
	VoiceIdle VoiceState = iota
	VoiceListening
	VoiceError
)

func (s VoiceState) String() string {
	switch s {
	case VoiceListening:
		return "listening"
	case VoiceError:
		return "error"
	default:
		return "idle"
	}
}

// SpeechErrorCode is the small fixed set of host speech errors surfaced to
// the user. Codes follow the Web Speech API error names.
type SpeechErrorCode string

const (
	SpeechErrNoSpeech     SpeechErrorCode = "no-speech"
	SpeechErrAudioCapture SpeechErrorCode = "audio-capture"
	SpeechErrNotAllowed   SpeechErrorCode = "not-allowed"
	SpeechErrOther        SpeechErrorCode = "other"
)

// UserMessage maps a speech error code to the fixed user-facing text.
func (c SpeechErrorCode) UserMessage() string {
	switch c {
	case SpeechErrNoSpeech:
		return "I didn't hear anything. Please try again."
	case SpeechErrAudioCapture:
		return "No microphone was found. Check your audio input and try again."
	case SpeechErrNotAllowed:
		return "Microphone access was denied. Allow microphone use and try again."
	default:
		return "Speech recognition failed. Please try again or type your command."
	}
}

// InputOwner identifies which component currently holds the single
// input-authority token.
type InputOwner string

const (
	OwnerNone         InputOwner = ""
	OwnerVoice        InputOwner = "voice"
	OwnerConfirmation InputOwner = "confirmation"
	OwnerCommand      InputOwner = "command"
)

// InputGate is the shared input-authority token. Adapters and the
// dispatcher must acquire it before acting and release it on completion,
// which turns the cooperative voice/text exclusion into an explicit,
// testable invariant.
type InputGate interface {
	// Acquire takes the token for owner. Returns false if another owner
	// holds it.
	Acquire(owner InputOwner) bool
	// Release frees the token if owner holds it.
	Release(owner InputOwner)
	// Owner reports the current holder.
	Owner() InputOwner
}
