package export

import "sync"

// Stage progress boundaries. Each stage maps its internal 0..1 into its own
// window so the overall fraction moves forward across the whole export.
const (
	progressResolveStart = 0.02
	progressResolveEnd   = 0.10
	progressRenderEnd    = 0.60
	progressAssembleEnd  = 0.68
	progressEncodeEnd    = 0.98
)

// Reporter fans progress and status lines out to the caller while enforcing
// the forward-only progress invariant: a value below the high-water mark is
// dropped, never re-emitted. Safe for concurrent use; the callback runs under
// the reporter's lock so concurrent emitters cannot reorder deliveries.
type Reporter struct {
	mu         sync.Mutex
	high       float64
	onProgress func(float64)
	onStatus   func(string)
}

func NewReporter(onProgress func(float64), onStatus func(string)) *Reporter {
	return &Reporter{onProgress: onProgress, onStatus: onStatus}
}

// Progress reports a new overall fraction. Regressions are swallowed.
func (r *Reporter) Progress(frac float64) {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if frac <= r.high {
		return
	}
	r.high = frac

	if r.onProgress != nil {
		r.onProgress(frac)
	}
}

// Status emits one human-readable line.
func (r *Reporter) Status(line string) {
	if r.onStatus != nil {
		r.onStatus(line)
	}
}

// Current returns the high-water progress mark.
func (r *Reporter) Current() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.high
}

// stageFraction maps a stage-local fraction into [start, end].
func stageFraction(start, end, frac float64) float64 {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return start + (end-start)*frac
}
