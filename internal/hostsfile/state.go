package hostsfile

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// State is the install state derived from a live hosts file.
type State int

const (
	StateUnknown State = iota
	StateApplied
	StateNotApplied
)

func (s State) String() string {
	switch s {
	case StateApplied:
		return "applied"
	case StateNotApplied:
		return "not applied"
	default:
		return "unknown"
	}
}

// ParseState inspects the first line of r.
func ParseState(r io.Reader) State {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if scanner.Err() != nil {
			return StateUnknown
		}
		return StateNotApplied
	}
	if strings.HasPrefix(scanner.Text(), GeneratedMarker) {
		return StateApplied
	}
	return StateNotApplied
}

// ReadState opens path and inspects its first line. A file that cannot be
// read yields StateUnknown; the caller cannot tell what is installed.
func ReadState(path string) State {
	f, err := os.Open(path)
	if err != nil {
		return StateUnknown
	}
	defer f.Close()
	return ParseState(f)
}

// GeneratedAt extracts the timestamp text from a generated first line.
func GeneratedAt(firstLine string) (string, bool) {
	return strings.CutPrefix(firstLine, GeneratedMarker)
}
