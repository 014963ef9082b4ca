package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"voxdesk/internal/domain"
)

// taskItem mirrors the task payload shape of the backend.
type taskItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Due       string `json:"due,omitempty"`
	Completed bool   `json:"completed"`
}

type noteItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

type eventItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date,omitempty"`
	Time  string `json:"time,omitempty"`
}

type fileItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Render produces the log entry for a result: the content string and
// whether it is a rendered fragment rather than plain text. Data payloads
// are decoded tolerantly; anything unparseable degrades to the reply
// message verbatim.
func Render(kind ResultKind, res *domain.CommandResult) (string, bool) {
	switch kind {
	case KindTask:
		if frag := renderTasks(res.Data); frag != "" {
			return joined(res.Message, frag), true
		}
	case KindNote:
		if frag := renderNotes(res.Data); frag != "" {
			return joined(res.Message, frag), true
		}
	case KindEvent, KindConfirmRequest:
		if frag := renderEvents(res.Data); frag != "" {
			return joined(res.Message, frag), true
		}
	case KindFile:
		if frag := renderFiles(res.Data); frag != "" {
			return joined(res.Message, frag), true
		}
	case KindDraft:
		if d, ok := DecodeDraft(res.Data); ok {
			return joined(res.Message, renderDraft(d)), true
		}
	}

	if res.Message != "" {
		return res.Message, false
	}
	return "Done.", false
}

// DecodeDraft extracts a draft payload from a draft-shaped result.
func DecodeDraft(data json.RawMessage) (*domain.Draft, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var d domain.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, false
	}
	if d.Subject == "" && d.Body == "" {
		return nil, false
	}
	if len(d.Recipients) > 0 {
		d.HasRecipient = true
	}
	return &d, true
}

func renderTasks(data json.RawMessage) string {
	var items []taskItem
	if !decodeItems(data, "tasks", &items) {
		return ""
	}
	var b strings.Builder
	for i, t := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		fmt.Fprintf(&b, "%s %s", box, t.Text)
		if t.Due != "" {
			fmt.Fprintf(&b, " (due %s)", t.Due)
		}
	}
	return b.String()
}

func renderNotes(data json.RawMessage) string {
	var items []noteItem
	if !decodeItems(data, "notes", &items) {
		return ""
	}
	var b strings.Builder
	for i, n := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "• %s", n.Title)
		if n.Content != "" {
			fmt.Fprintf(&b, " — %s", firstLine(n.Content))
		}
	}
	return b.String()
}

func renderEvents(data json.RawMessage) string {
	var items []eventItem
	if !decodeItems(data, "events", &items) {
		return ""
	}
	var b strings.Builder
	for i, e := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "• %s", e.Title)
		if e.Date != "" {
			fmt.Fprintf(&b, " on %s", e.Date)
		}
		if e.Time != "" {
			fmt.Fprintf(&b, " at %s", e.Time)
		}
	}
	return b.String()
}

func renderFiles(data json.RawMessage) string {
	var items []fileItem
	if !decodeItems(data, "files", &items) {
		var images []fileItem
		if !decodeItems(data, "images", &images) {
			return ""
		}
		items = images
	}
	var b strings.Builder
	for i, f := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "• %s", f.Name)
	}
	return b.String()
}

func renderDraft(d *domain.Draft) string {
	var b strings.Builder
	label := "Email draft"
	if d.Type == "summary" {
		label = "Summary draft"
	}
	fmt.Fprintf(&b, "%s: %s\n%s", label, d.Subject, d.Body)
	if d.HasRecipient {
		fmt.Fprintf(&b, "\nTo: %s\nSay \"send it\" to send now.", strings.Join(d.Recipients, ", "))
	} else {
		b.WriteString("\nNo recipients yet. Add recipients to send.")
	}
	return b.String()
}

// decodeItems accepts either a bare object, a bare array, or an object
// wrapping the array under the given key.
func decodeItems[T any](data json.RawMessage, key string, out *[]T) bool {
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, out); err == nil && len(*out) > 0 {
		return true
	}
	var single T
	if err := json.Unmarshal(data, &single); err == nil {
		// Reject empty structs: a wrapper object also decodes into T with
		// zero fields set.
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err == nil {
			if inner, ok := wrapper[key]; ok {
				return json.Unmarshal(inner, out) == nil && len(*out) > 0
			}
		}
		if !isZeroJSON(single) {
			*out = []T{single}
			return true
		}
	}
	return false
}

func isZeroJSON[T any](v T) bool {
	a, _ := json.Marshal(v)
	var zero T
	b, _ := json.Marshal(zero)
	return string(a) == string(b)
}

func joined(message, fragment string) string {
	if message == "" {
		return fragment
	}
	return message + "\n" + fragment
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
