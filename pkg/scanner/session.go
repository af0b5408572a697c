package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Session is one scan log. Records are appended; the file and its
// directory are created on first write.
type Session struct {
	ID      uuid.UUID
	Started time.Time
	Path    string

	mu      sync.Mutex
	records int
}

// NewSession returns a session logging to <dir>/<started>.log
func NewSession(dir string, started time.Time) *Session {
	return &Session{
		ID:      uuid.New(),
		Started: started,
		Path:    filepath.Join(dir, started.Format(LogTimeFormat)+LogExt),
	}
}

// NewClickerSession returns a session appending to <dir>/capturedClicks.log,
// the log the compare command reads.
func NewClickerSession(dir string) *Session {
	return &Session{
		ID:      uuid.New(),
		Started: time.Now(),
		Path:    filepath.Join(dir, ClickerLogName),
	}
}

// Record appends one hit:
//
//	A signal was found on: <frequency>
//	<payload hex>
func (s *Session) Record(frequency uint32, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return errors.Wrap(err, "failed to create scan log directory")
	}
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "failed to open scan log %s", s.Path)
	}
	if _, err := fmt.Fprintf(f, "A signal was found on: %d\n%s\n", frequency, payload); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write scan log %s", s.Path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close scan log %s", s.Path)
	}
	s.records++
	return nil
}

// Records returns how many hits were written this session
func (s *Session) Records() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}
