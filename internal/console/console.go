// Package console dumps human-readable diagnostics to any attached operator
// terminals. Inside the session container these are the /dev/pts devices
// other than the daemon's own (/dev/pts/0).
package console

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

const ptsDir = "/dev/pts"

// Sink writes diagnostic text somewhere an operator can see it.
type Sink struct {
	// dir is the pseudo-terminal directory; overridable for tests.
	dir string
}

// New creates a Sink scanning the default pts directory.
func New() *Sink { return &Sink{dir: ptsDir} }

// NewAt creates a Sink scanning dir, for tests.
func NewAt(dir string) *Sink { return &Sink{dir: dir} }

// Dump writes text to every attached operator console. Failures are logged
// and swallowed: a missing console never blocks a transition.
func (s *Sink) Dump(text string) {
	for _, dev := range s.devices() {
		f, err := os.OpenFile(dev, os.O_WRONLY, 0)
		if err != nil {
			continue
		}
		if _, err := f.WriteString(text + "\n\n"); err != nil {
			slog.Debug("console write failed", "device", dev, "err", err)
		}
		_ = f.Close()
	}
}

// devices lists writable numbered pts devices, skipping pts/0 (the daemon's
// own terminal).
func (s *Sink) devices() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	var out []string
	for _, e := range entries {
		n, err := strconv.Atoi(e.Name())
		if err != nil || n == 0 {
			continue
		}
		out = append(out, filepath.Join(s.dir, e.Name()))
	}
	return out
}
