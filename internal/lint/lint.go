// Package lint runs submitted code through an external style/static
// analysis checker. The rule set belongs to the checker; this package only
// owns the contract: empty findings mean the code may run.
package lint

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Checker invokes a checker command with the path of a file holding the
// submitted code. A non-zero exit with output is findings; a non-zero exit
// without output is an engine failure.
type Checker struct {
	argv []string
}

// New creates a Checker running argv. An empty argv disables checking:
// every submission passes.
func New(argv []string) *Checker {
	return &Checker{argv: argv}
}

// Check evaluates code and returns human-readable findings, empty when the
// code is clean.
func (c *Checker) Check(code string) (string, error) {
	if len(c.argv) == 0 {
		return "", nil
	}

	dir, err := os.MkdirTemp("", "robolab-lint-")
	if err != nil {
		return "", fmt.Errorf("lint scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "submission.py")
	if err := os.WriteFile(path, []byte(code), 0o600); err != nil {
		return "", fmt.Errorf("write lint input: %w", err)
	}

	args := append(append([]string(nil), c.argv[1:]...), path)
	out, err := exec.Command(c.argv[0], args...).CombinedOutput()
	findings := strings.TrimSpace(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && findings != "" {
			return findings, nil
		}
		return "", fmt.Errorf("run checker %s: %w", c.argv[0], err)
	}
	return "", nil
}
