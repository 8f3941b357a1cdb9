package encoder

import (
	"errors"
	"sync"
	"testing"
)

func TestErrorCell_FirstWins(t *testing.T) {
	cell := &ErrorCell{}

	first := errors.New("video loop failed")
	second := errors.New("audio loop failed")

	cell.Set(first)
	cell.Set(second)

	if got := cell.Err(); got != first {
		t.Fatalf("Err() = %v, want first recorded error", got)
	}
}

func TestErrorCell_NilIgnored(t *testing.T) {
	cell := &ErrorCell{}
	cell.Set(nil)
	if cell.Failed() {
		t.Fatal("Failed() = true after Set(nil)")
	}

	cell.Set(errors.New("boom"))
	cell.Set(nil)
	if !cell.Failed() {
		t.Fatal("Failed() = false after a real error")
	}
}

func TestErrorCell_ConcurrentWriters(t *testing.T) {
	cell := &ErrorCell{}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cell.Set(errors.New("loop error"))
		}()
	}
	wg.Wait()

	if !cell.Failed() {
		t.Fatal("Failed() = false, want an error recorded")
	}
}
