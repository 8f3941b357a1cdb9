package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		max   int
		want  string
	}{
		{"plain", "Summer Trip", 64, "Summer Trip"},
		{"punctuation becomes underscores", "Trip: Day #1!", 64, "Trip_ Day _1_"},
		{"empty falls back", "", 64, "Movie"},
		{"only symbols trimmed of nothing", "///", 64, "___"},
		{"whitespace only falls back", "   ", 64, "Movie"},
		{"control runes dropped", "Trip\x00\x1b[31m", 64, "Trip_31m"},
		{"unicode letters kept", "Sommerausflug große Tour", 64, "Sommerausflug große Tour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.in, tt.max); got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeTitle_TruncatesLongDrafts(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := SanitizeTitle(long, 64)
	if len([]rune(got)) != 64 {
		t.Fatalf("len = %d, want 64", len([]rune(got)))
	}
}

func TestOutputPath_NoCollision(t *testing.T) {
	dir := t.TempDir()
	if got, want := OutputPath(dir, "Movie"), filepath.Join(dir, "Movie.mp4"); got != want {
		t.Fatalf("OutputPath() = %s, want %s", got, want)
	}
}

func TestOutputPath_SuffixesOnCollision(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "Movie.mp4"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "Movie-2.mp4"), []byte("x"), 0o644)

	if got, want := OutputPath(dir, "Movie"), filepath.Join(dir, "Movie-3.mp4"); got != want {
		t.Fatalf("OutputPath() = %s, want %s", got, want)
	}
}

func TestOutputPath_NeverReturnsExisting(t *testing.T) {
	dir := t.TempDir()
	for n := 0; n < 5; n++ {
		path := OutputPath(dir, "Movie")
		if _, err := os.Stat(path); err == nil {
			t.Fatalf("OutputPath() returned existing file %s", path)
		}
		os.WriteFile(path, []byte("x"), 0o644)
	}
}
