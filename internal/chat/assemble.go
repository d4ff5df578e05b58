package chat

import (
	"github.com/inspecta-dev/inspecta/internal/classify"
	"github.com/inspecta-dev/inspecta/internal/gateway"
	"github.com/inspecta-dev/inspecta/internal/session"
)

// assembleParts builds the ordered part list for one user turn.
//
// The list starts as a single text part (when text is non-empty). Each
// image- or audio-classified attachment is read from storage and inserted at
// the front, so binary parts always precede the text part. Unknown-category
// attachments stay in the session but are never sent. Attachments whose
// backing file is missing are skipped silently: best effort, not an error.
//
// hasImage is true iff at least one image part was actually emitted; it
// feeds the ticket affordance signal.
func assembleParts(files FileStore, atts []session.Attachment, text string) (parts []gateway.Part, hasImage bool) {
	if text != "" {
		parts = append(parts, gateway.TextPart(text))
	}
	for _, att := range atts {
		if att.Category == classify.CategoryUnknown {
			continue
		}
		data, err := files.Read(att.Filename)
		if err != nil {
			continue
		}
		parts = append([]gateway.Part{gateway.BinaryPart(att.MimeType, data)}, parts...)
		if att.Category == classify.CategoryImage {
			hasImage = true
		}
	}
	return parts, hasImage
}
