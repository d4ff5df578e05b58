// Package gateway defines the generation backend interface for Inspecta.
package gateway

import (
	"context"
	"errors"
)

// ErrUnavailable is reported when no generation backend is configured or the
// backend failed to initialize at startup. Callers degrade to a fixed
// unavailability message instead of failing the request.
var ErrUnavailable = errors.New("generation backend unavailable")

// Part is one element of an assembled multi-part prompt. Exactly one of Text
// or Data is set: a text part carries Text, a binary part carries Data with
// its MimeType.
type Part struct {
	Text     string
	MimeType string
	Data     []byte
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BinaryPart builds an inline binary part.
func BinaryPart(mimeType string, data []byte) Part {
	return Part{MimeType: mimeType, Data: data}
}

// IsText reports whether the part is a text part.
func (p Part) IsText() bool {
	return len(p.Data) == 0 && p.MimeType == ""
}

// Generator is the minimal interface to a generative backend: given one
// user-role turn of ordered parts, return the generated text or an error.
// Implementations provide the actual HTTP transport to a specific provider.
type Generator interface {
	Generate(ctx context.Context, parts []Part) (string, error)
}
