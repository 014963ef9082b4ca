package confirm

import (
	"strings"

	"voxdesk/internal/config"
)

// Verdict classifies a confirmation utterance.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictAffirm
	VerdictNegate
)

func (v Verdict) String() string {
	switch v {
	case VerdictAffirm:
		return "affirm"
	case VerdictNegate:
		return "negate"
	default:
		return "unknown"
	}
}

// Interpret matches an utterance against the confirmation lexicons. The
// utterance is trimmed and lowered first; tokens match as substrings. The
// affirmative set is checked before the negative set.
func Interpret(lex *config.Lexicon, utterance string) Verdict {
	u := strings.ToLower(strings.TrimSpace(utterance))
	if u == "" {
		return VerdictUnknown
	}
	for _, tok := range lex.Affirmative {
		if strings.Contains(u, tok) {
			return VerdictAffirm
		}
	}
	for _, tok := range lex.Negative {
		if strings.Contains(u, tok) {
			return VerdictNegate
		}
	}
	return VerdictUnknown
}
