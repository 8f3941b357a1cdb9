package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedRange means the Range header could not be understood at
	// all; the server answers with the whole movie.
	ErrMalformedRange = errors.New("malformed range header")
	// ErrUnsatisfiableRange means the requested window lies outside the
	// movie; the server answers 416.
	ErrUnsatisfiableRange = errors.New("range outside movie")
)

// ByteRange is the inclusive byte window of one partial movie request.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns how many bytes the window covers.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range response header for a movie of the
// given total size.
func (r ByteRange) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// ParseByteRange interprets an HTTP Range header against a movie of the given
// size. An empty header means "whole movie" and returns (nil, nil). Only the
// first window of a multi-range request is honored; video players scrub with
// single ranges.
func ParseByteRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrMalformedRange
	}
	if first, _, multi := strings.Cut(spec, ","); multi {
		spec = strings.TrimSpace(first)
	}

	startPart, endPart, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, ErrMalformedRange
	}

	var start, end int64
	if startPart == "" {
		// Suffix form: the last N bytes of the movie.
		n, err := strconv.ParseInt(endPart, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrMalformedRange
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	} else {
		var err error
		start, err = strconv.ParseInt(startPart, 10, 64)
		if err != nil || start < 0 {
			return nil, ErrMalformedRange
		}
		if endPart == "" {
			end = size - 1
		} else {
			end, err = strconv.ParseInt(endPart, 10, 64)
			if err != nil {
				return nil, ErrMalformedRange
			}
		}
	}

	if start >= size || start > end {
		return nil, ErrUnsatisfiableRange
	}
	if end >= size {
		end = size - 1
	}
	return &ByteRange{Start: start, End: end}, nil
}
