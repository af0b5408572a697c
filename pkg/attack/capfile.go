package attack

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CaptureExt is the extension of saved capture files
const CaptureExt = ".cap"

// Store reads and writes capture files: plain text, one hex payload per
// line.
type Store struct {
	Dir string
	now func() time.Time
}

// NewStore returns a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) timestamp() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Path returns the file a capture named name is stored in
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name+CaptureExt)
}

// TimestampedName returns "<YYYY_MM_DD_HHMMSS>_payload"
func (s *Store) TimestampedName() string {
	return s.timestamp().Format("2006_01_02_150405") + "_payload"
}

// ValidName reports whether name can be used as a capture file name
func ValidName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Save writes payloads to <Dir>/<name>.cap, replacing any existing file,
// and returns the path.
func (s *Store) Save(name string, payloads ...string) (string, error) {
	if !ValidName(name) {
		return "", errors.Errorf("bad capture name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create capture directory")
	}

	var sb strings.Builder
	for _, p := range payloads {
		fmt.Fprintln(&sb, strings.TrimSpace(p))
	}

	path := s.Path(name)
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write capture %s", path)
	}
	return path, nil
}

// Load reads the payload lines of a capture file. Blank lines are skipped.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrCaptureNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "failed to open capture %s", path)
	}
	defer f.Close()

	var payloads []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			payloads = append(payloads, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read capture %s", path)
	}
	return payloads, nil
}

// PayloadBytes converts a hex payload to the bytes that go on air. Every
// hex digit is kept, so leading zero bytes survive; an odd digit count is
// padded with a leading zero.
func PayloadBytes(payload string) ([]byte, error) {
	p := strings.TrimSpace(payload)
	p = strings.TrimPrefix(strings.TrimPrefix(p, "0x"), "0X")
	if len(p)%2 == 1 {
		p = "0" + p
	}
	b, err := hex.DecodeString(p)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPayload, "%q: %v", payload, err)
	}
	if len(b) == 0 {
		return nil, errors.Wrapf(ErrInvalidPayload, "empty payload")
	}
	return b, nil
}
