package dispatch

// ResultKind is the closed set of rendering/side-effect branches a
// backend action tag maps to. Unrecognized tags fall through to
// KindPlain, which renders the reply message verbatim.
type ResultKind int

const (
	KindPlain ResultKind = iota
	KindHelp
	KindExit
	KindTask
	KindNote
	KindEvent
	KindMeet
	KindFile
	KindDraft
	KindDraftCleared
	KindDraftSent
	KindConfirmRequest
	KindAuth
)

func (k ResultKind) String() string {
	switch k {
	case KindHelp:
		return "help"
	case KindExit:
		return "exit"
	case KindTask:
		return "task"
	case KindNote:
		return "note"
	case KindEvent:
		return "event"
	case KindMeet:
		return "meet"
	case KindFile:
		return "file"
	case KindDraft:
		return "draft"
	case KindDraftCleared:
		return "draft_cleared"
	case KindDraftSent:
		return "draft_sent"
	case KindConfirmRequest:
		return "confirm_request"
	case KindAuth:
		return "auth"
	default:
		return "plain"
	}
}

// KindOf maps the backend action vocabulary onto a rendering branch.
func KindOf(action string) ResultKind {
	switch action {
	case "help":
		return KindHelp
	case "exit":
		return KindExit
	case "list_tasks", "add_task", "complete_task", "delete_task":
		return KindTask
	case "list_notes", "create_note", "get_note", "delete_note", "search_notes":
		return KindNote
	case "list_events", "list_today", "list_date", "create_event", "get_event",
		"delete_event", "delete_all_events":
		return KindEvent
	case "schedule_meet", "send_meet_invite":
		return KindMeet
	case "list_files", "search_files", "show_images", "show_image", "view_folder",
		"summarize_file":
		return KindFile
	case "draft_email", "draft_summary", "show_draft", "refine_draft":
		return KindDraft
	case "clear_draft":
		return KindDraftCleared
	case "send_draft":
		return KindDraftSent
	case "confirm_delete_all":
		return KindConfirmRequest
	case "login_required", "reauthenticate":
		return KindAuth
	default:
		return KindPlain
	}
}
