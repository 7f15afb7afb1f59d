package activity

import "github.com/edgard/guildwatch/internal/database"

// Classify compares an observed message state against its previous snapshot.
// It returns false when there is no snapshot or nothing changed.
func Classify(prev *database.MessageSnapshot, content, attachmentSummary string) (database.EventKind, bool) {
	if prev == nil {
		return "", false
	}

	contentChanged := prev.Content != content
	attachmentsChanged := prev.AttachmentSummary != attachmentSummary

	switch {
	case !contentChanged && !attachmentsChanged:
		return "", false
	case !contentChanged:
		return database.EventAttachmentRemoved, true
	default:
		return database.EventEdited, true
	}
}
