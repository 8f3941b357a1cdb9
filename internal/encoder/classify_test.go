package encoder

import (
	"errors"
	"fmt"
	"testing"

	"github.com/framewall/framewall-agent/internal/media"
)

func TestClassifier_Recoverable(t *testing.T) {
	c := NewClassifier([]string{"-16976", "Unknown encoder"})

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"matching code", errors.New("encode session failed with code -16976"), true},
		{"matching text", errors.New("Unknown encoder 'libx264'"), true},
		{"unrelated", errors.New("no space left on device"), false},
		{"wrapped", fmt.Errorf("attempt 2: %w", errors.New("status -16976")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Recoverable(tt.err); got != tt.want {
				t.Errorf("Recoverable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifier_MatchesCommandStderr(t *testing.T) {
	c := NewClassifier([]string{"Impossible to convert between the formats"})

	err := &media.CommandError{
		Err:    errors.New("exit status 1"),
		Stderr: "frame=0\nImpossible to convert between the formats supported by the filter\n",
	}
	if !c.Recoverable(err) {
		t.Fatal("Recoverable() = false, want stderr signature match")
	}
}

func TestClassifier_EmptySignatureNeverMatches(t *testing.T) {
	c := NewClassifier([]string{""})
	if c.Recoverable(errors.New("anything")) {
		t.Fatal("empty signature matched")
	}
}
