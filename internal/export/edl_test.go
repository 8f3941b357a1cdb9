package export

import (
	"strings"
	"testing"

	"github.com/framewall/framewall-agent/internal/timeline"
)

func TestGenerateEDL(t *testing.T) {
	comp := &timeline.Composition{
		Entries: []timeline.Entry{
			{InstanceID: "title", Kind: timeline.KindTitle, StartS: 0, DurationS: 2, Source: "/scratch/title.mp4"},
			{InstanceID: "seg-000", Kind: timeline.KindVideo, StartS: 2, DurationS: 3, TrimStart: 1, TrimEnd: 4, Source: "/library/v.mov"},
		},
		TotalS: 5,
	}

	edl := GenerateEDL(comp, "Summer Trip", 30)

	if !strings.HasPrefix(edl, "TITLE: Summer Trip\nFCM: NON-DROP FRAME\n") {
		t.Fatalf("header wrong:\n%s", edl)
	}
	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Errorf("title event wrong:\n%s", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:01:00 00:00:04:00 00:00:02:00 00:00:05:00") {
		t.Errorf("video event wrong:\n%s", edl)
	}
	if !strings.Contains(edl, "* MEDIA PATH:  /library/v.mov") {
		t.Errorf("media path missing:\n%s", edl)
	}
}

func TestSecondsToTimecode(t *testing.T) {
	tests := []struct {
		s    float64
		fps  int
		want string
	}{
		{0, 30, "00:00:00:00"},
		{1.5, 30, "00:00:01:15"},
		{61, 30, "00:01:01:00"},
		{3661.0, 30, "01:01:01:00"},
	}
	for _, tt := range tests {
		if got := secondsToTimecode(tt.s, tt.fps); got != tt.want {
			t.Errorf("secondsToTimecode(%v, %d) = %s, want %s", tt.s, tt.fps, got, tt.want)
		}
	}
}
