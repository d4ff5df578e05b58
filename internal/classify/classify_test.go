package classify_test

import (
	"testing"

	"github.com/inspecta-dev/inspecta/internal/classify"
)

func TestClassify_Images(t *testing.T) {
	cases := map[string]string{
		"photo.png":     "image/png",
		"photo.jpg":     "image/jpeg",
		"photo.jpeg":    "image/jpeg",
		"anim.gif":      "image/gif",
		"scan.bmp":      "image/bmp",
		"modern.webp":   "image/webp",
		"UPPER.PNG":     "image/png",
		"Mixed.JpEg":    "image/jpeg",
		"dir/part.webp": "image/webp",
	}
	for name, wantMime := range cases {
		cat, mime := classify.Classify(name)
		if cat != classify.CategoryImage {
			t.Errorf("Classify(%q) category = %q; want image", name, cat)
		}
		if mime != wantMime {
			t.Errorf("Classify(%q) mime = %q; want %q", name, mime, wantMime)
		}
	}
}

func TestClassify_Audio(t *testing.T) {
	cases := map[string]string{
		"note.wav":   "audio/wav",
		"song.mp3":   "audio/mpeg",
		"old.aiff":   "audio/aiff",
		"voice.aac":  "audio/aac",
		"clip.ogg":   "audio/ogg",
		"master.FLAC": "audio/flac",
	}
	for name, wantMime := range cases {
		cat, mime := classify.Classify(name)
		if cat != classify.CategoryAudio {
			t.Errorf("Classify(%q) category = %q; want audio", name, cat)
		}
		if mime != wantMime {
			t.Errorf("Classify(%q) mime = %q; want %q", name, mime, wantMime)
		}
	}
}

func TestClassify_Unknown(t *testing.T) {
	for _, name := range []string{"doc.pdf", "archive.tar.gz", "noext", "", "report.txt", ".png.exe"} {
		cat, mime := classify.Classify(name)
		if cat != classify.CategoryUnknown {
			t.Errorf("Classify(%q) category = %q; want unknown", name, cat)
		}
		if mime != "application/octet-stream" {
			t.Errorf("Classify(%q) mime = %q; want application/octet-stream", name, mime)
		}
	}
}

func TestIsImage(t *testing.T) {
	if !classify.IsImage("1700000000_abc_photo.png") {
		t.Error("IsImage(photo.png) = false; want true")
	}
	if classify.IsImage("voice.ogg") {
		t.Error("IsImage(voice.ogg) = true; want false")
	}
	if classify.IsImage("notes.txt") {
		t.Error("IsImage(notes.txt) = true; want false")
	}
}
