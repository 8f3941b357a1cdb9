package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/framewall/framewall-agent/internal/timeline"
)

// GenerateEDL renders a CMX-style edit decision list describing the final
// composition. Written next to the movie as a sidecar so the cut can be
// inspected or re-imported elsewhere.
func GenerateEDL(comp *timeline.Composition, title string, fps int) string {
	if fps <= 0 {
		fps = 30
	}

	lines := []string{fmt.Sprintf("TITLE: %s", title), "FCM: NON-DROP FRAME", ""}

	for i, e := range comp.Entries {
		srcInS, srcOutS := 0.0, e.DurationS
		if e.Kind == timeline.KindVideo {
			srcInS, srcOutS = e.TrimStart, e.TrimEnd
		}

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s",
				i+1, "AX", "V",
				secondsToTimecode(srcInS, fps),
				secondsToTimecode(srcOutS, fps),
				secondsToTimecode(e.StartS, fps),
				secondsToTimecode(e.StartS+e.DurationS, fps),
			),
			fmt.Sprintf("* FROM CLIP NAME:  %s", e.InstanceID),
			fmt.Sprintf("* MEDIA PATH:  %s", e.Source),
		)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func secondsToTimecode(s float64, fps int) string {
	totalFrames := int(math.Round(s * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
