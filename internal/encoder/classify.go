package encoder

import (
	"errors"
	"strings"

	"github.com/framewall/framewall-agent/internal/media"
)

// Classifier decides whether an encode failure belongs to the recoverable
// capability-mismatch class that is worth retrying. The signature list is
// configured, not hard-coded, because the exact set of recoverable failures
// varies across encoder builds.
type Classifier struct {
	signatures []string
}

func NewClassifier(signatures []string) *Classifier {
	return &Classifier{signatures: signatures}
}

// Recoverable reports whether err matches any configured signature. Command
// errors are matched against their captured stderr as well as the message.
func (c *Classifier) Recoverable(err error) bool {
	if err == nil {
		return false
	}

	haystack := err.Error()
	var cmdErr *media.CommandError
	if errors.As(err, &cmdErr) {
		haystack += "\n" + cmdErr.Stderr
	}

	for _, sig := range c.signatures {
		if sig != "" && strings.Contains(haystack, sig) {
			return true
		}
	}
	return false
}
