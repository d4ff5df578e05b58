// Package classify maps attachment filenames to a content category and MIME type.
package classify

import (
	"path/filepath"
	"strings"
)

// Category is the coarse content category of an attachment.
type Category string

const (
	CategoryImage   Category = "image"
	CategoryAudio   Category = "audio"
	CategoryUnknown Category = "unknown"
)

// mimeByExt maps a lowercase file extension (without the dot) to its MIME type.
var mimeByExt = map[string]string{
	// Images.
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	// Audio.
	"wav":  "audio/wav",
	"mp3":  "audio/mpeg",
	"aiff": "audio/aiff",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
}

// Classify returns the category and MIME type for a filename based on its
// extension. The match is case-insensitive. Unrecognized extensions classify
// as CategoryUnknown with a generic binary MIME type; Classify never fails.
func Classify(filename string) (Category, string) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	mime, ok := mimeByExt[ext]
	if !ok {
		return CategoryUnknown, "application/octet-stream"
	}
	if strings.HasPrefix(mime, "image/") {
		return CategoryImage, mime
	}
	return CategoryAudio, mime
}

// IsImage reports whether the filename classifies as an image.
func IsImage(filename string) bool {
	cat, _ := Classify(filename)
	return cat == CategoryImage
}
