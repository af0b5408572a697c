package correlate

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// AnnotationMarker flags scan-log header lines that carry no payload
const AnnotationMarker = "found"

var zeroRun = regexp.MustCompile("000+")

// SplitByZeros splits a hex capture on runs of three or more '0'
// characters and keeps the pieces longer than five characters. Captures
// often hold several repeats of a code separated by silence.
func SplitByZeros(capture string) []string {
	var out []string
	for _, piece := range zeroRun.Split(strings.TrimSpace(capture), -1) {
		if len(piece) > 5 {
			out = append(out, piece)
		}
	}
	return out
}

// ParseLog reads a scan or clicker log and returns the split payload
// pieces of each payload line. Lines containing AnnotationMarker and
// blank lines are skipped.
func ParseLog(r io.Reader) ([][]string, error) {
	var presses [][]string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.Contains(line, AnnotationMarker) {
			continue
		}
		presses = append(presses, SplitByZeros(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read log")
	}
	return presses, nil
}

// Flatten joins parsed presses into one candidate list
func Flatten(presses [][]string) []string {
	var out []string
	for _, p := range presses {
		out = append(out, p...)
	}
	return out
}
