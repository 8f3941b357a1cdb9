package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scratch is the transient working directory of one export. Every exit path
// of an export must call Cleanup; partial clips and intermediates never
// outlive the call.
type Scratch struct {
	Dir string
}

// NewScratch creates a fresh per-export directory under root.
func NewScratch(root, exportID string) (*Scratch, error) {
	dir := filepath.Join(root, "export-"+exportID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{Dir: dir}, nil
}

// Path returns a file path inside the scratch directory.
func (s *Scratch) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Cleanup removes the scratch directory and everything in it.
func (s *Scratch) Cleanup() {
	os.RemoveAll(s.Dir)
}
