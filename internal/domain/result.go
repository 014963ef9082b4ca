package domain

import "encoding/json"

// CommandResult is the backend's reply to a submitted command. Exactly one
// of {success, failure-needing-recipients, failure-needing-interactive,
// plain failure} holds at a time; the two needs-flags are mutually
// exclusive by backend contract and a reply violating that is rejected as
// malformed rather than tie-broken client-side.
type CommandResult struct {
	Success              bool            `json:"success"`
	Action               string          `json:"action,omitempty"`
	Message              string          `json:"message,omitempty"`
	Data                 json.RawMessage `json:"data,omitempty"`
	NeedsInteractive     bool            `json:"needs_interactive,omitempty"`
	NeedsRecipients      bool            `json:"needs_recipients,omitempty"`
	RequiresConfirmation bool            `json:"requires_confirmation,omitempty"`
	ConfirmationType     string          `json:"confirmation_type,omitempty"`
}

// Malformed reports whether the reply violates the backend contract.
func (r *CommandResult) Malformed() bool {
	return !r.Success && r.NeedsInteractive && r.NeedsRecipients
}

// ConfirmationTypeDeleteAllEvents is the only confirmation variant the
// backend currently issues.
const ConfirmationTypeDeleteAllEvents = "delete_all_events"

// PendingConfirmation is created when a CommandResult carries a recognized
// confirmation type. While it exists it is the sole input gate: the data
// payload is echoed back verbatim on confirmation.
type PendingConfirmation struct {
	Type string
	Data json.RawMessage
}

// Draft is the single in-flight composable artifact (email or summary)
// awaiting recipient attachment and sending. Every draft-producing or
// draft-refining result fully replaces the stored draft; fields are never
// merged.
type Draft struct {
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	Recipients   []string `json:"recipients"`
	HasRecipient bool     `json:"has_recipient"`
	Type         string   `json:"type"` // "email" | "summary"
	Summary      string   `json:"summary,omitempty"`
}

// InteractiveDraftRequest is the payload for the interactive draft
// collection endpoint.
type InteractiveDraftRequest struct {
	Purpose       string `json:"purpose"`
	RecipientType string `json:"recipient_type"`
	Details       string `json:"details"`
	Tone          string `json:"tone"`
}

// Friend is an entry in the backend friends directory.
type Friend struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
