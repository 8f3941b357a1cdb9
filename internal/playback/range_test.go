package playback

import (
	"errors"
	"testing"
)

func TestParseByteRange_Windows(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		size      int64
		wantStart int64
		wantEnd   int64
	}{
		{"whole file explicitly", "bytes=0-999", 1000, 0, 999},
		{"open end", "bytes=500-", 1000, 500, 999},
		{"suffix", "bytes=-500", 1000, 500, 999},
		{"single byte", "bytes=0-0", 1000, 0, 0},
		{"interior window", "bytes=100-199", 1000, 100, 199},
		{"end clamped to size", "bytes=0-2000", 1000, 0, 999},
		{"suffix longer than movie", "bytes=-2000", 500, 0, 499},
		{"final byte open end", "bytes=999-", 1000, 999, 999},
		{"first window of multi-range", "bytes=0-99, 200-299", 1000, 0, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseByteRange(tt.header, tt.size)
			if err != nil {
				t.Fatalf("ParseByteRange(%q) error = %v", tt.header, err)
			}
			if got == nil {
				t.Fatalf("ParseByteRange(%q) = nil, want window", tt.header)
			}
			if got.Start != tt.wantStart || got.End != tt.wantEnd {
				t.Errorf("window = [%d, %d], want [%d, %d]", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParseByteRange_NoHeader(t *testing.T) {
	got, err := ParseByteRange("", 1000)
	if err != nil || got != nil {
		t.Fatalf("ParseByteRange(\"\") = %v, %v, want nil, nil", got, err)
	}
}

func TestParseByteRange_Errors(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		size    int64
		wantErr error
	}{
		{"start at size", "bytes=1000-", 1000, ErrUnsatisfiableRange},
		{"window past end", "bytes=1500-2000", 1000, ErrUnsatisfiableRange},
		{"inverted window", "bytes=500-100", 1000, ErrUnsatisfiableRange},
		{"no unit", "invalid", 1000, ErrMalformedRange},
		{"wrong unit", "chars=0-100", 1000, ErrMalformedRange},
		{"garbage start", "bytes=abc-100", 1000, ErrMalformedRange},
		{"garbage end", "bytes=0-abc", 1000, ErrMalformedRange},
		{"zero suffix", "bytes=-0", 1000, ErrMalformedRange},
		{"no dash", "bytes=100", 1000, ErrMalformedRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseByteRange(tt.header, tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseByteRange(%q) error = %v, want %v", tt.header, err, tt.wantErr)
			}
			if got != nil {
				t.Errorf("window = %+v, want nil on error", got)
			}
		})
	}
}

func TestByteRange_Length(t *testing.T) {
	tests := []struct {
		window ByteRange
		want   int64
	}{
		{ByteRange{Start: 0, End: 99}, 100},
		{ByteRange{Start: 0, End: 0}, 1},
		{ByteRange{Start: 500, End: 999}, 500},
	}
	for _, tt := range tests {
		if got := tt.window.Length(); got != tt.want {
			t.Errorf("Length(%+v) = %d, want %d", tt.window, got, tt.want)
		}
	}
}

func TestByteRange_ContentRange(t *testing.T) {
	w := ByteRange{Start: 500, End: 999}
	if got := w.ContentRange(1000); got != "bytes 500-999/1000" {
		t.Errorf("ContentRange() = %s, want bytes 500-999/1000", got)
	}
}
