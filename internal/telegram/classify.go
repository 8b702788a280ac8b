package telegram

import "strings"

// EditOutcome classifies the result of an in-place message edit.
type EditOutcome int

const (
	// EditOK means the edit was applied.
	EditOK EditOutcome = iota
	// EditUnchanged means the new content matched the old. Telegram
	// rejects these edits, but nothing needs to happen.
	EditUnchanged
	// EditTargetMissing means the message was deleted or can no longer
	// be edited. The caller should send a replacement and record its ID.
	EditTargetMissing
	// EditFailed covers transient and unknown failures. The next
	// refresh retries the same edit naturally.
	EditFailed
)

func (o EditOutcome) String() string {
	switch o {
	case EditOK:
		return "ok"
	case EditUnchanged:
		return "unchanged"
	case EditTargetMissing:
		return "target_missing"
	case EditFailed:
		return "failed"
	}
	return "unknown"
}

var targetMissingPatterns = []string{
	"message to edit not found",
	"message can't be edited",
	"message not found",
}

// ClassifyEdit maps an edit error onto the outcome the reconciler acts on.
// The Bot API only exposes free-text descriptions for these cases, so the
// match is on the description substrings Telegram actually returns. If a
// future API revision adds structured error codes, this is the one place
// to switch over.
func ClassifyEdit(err error) EditOutcome {
	if err == nil {
		return EditOK
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "message is not modified") {
		return EditUnchanged
	}
	for _, pat := range targetMissingPatterns {
		if strings.Contains(msg, pat) {
			return EditTargetMissing
		}
	}
	return EditFailed
}
