package thread

import (
	"strings"

	"github.com/djassa/djassa-backend/internal/domain"
)

// ComposeContent returns the text that gets persisted for a message. Text is
// trimmed; when it is empty and a media attachment is present, a placeholder
// referencing the attachment name is synthesized so that no row is ever stored
// with empty content alongside media. Returns "" only when there is nothing to
// send at all.
func ComposeContent(text string, media *domain.Media) string {
	text = strings.TrimSpace(text)
	if text != "" {
		return text
	}
	if media == nil {
		return ""
	}
	if media.Name != "" {
		return "Pièce jointe : " + media.Name
	}
	return "Pièce jointe"
}
