// Package workspace manages the on-disk layout the orchestrator works in:
// world assets, user code, and built binaries, all rooted at a single
// directory created idempotently at startup.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout is the set of directories a session uses.
type Layout struct {
	Root     string
	Worlds   string
	Code     string
	Binaries string
}

// CodeFile is the fixed destination for instrumented inline code.
const CodeFile = "academy.py"

// EntryFile is the template entry point, preferred over CodeFile when the
// template ships one.
const EntryFile = "exercise.py"

// Ensure creates the workspace directories under root if missing and
// returns the resulting layout.
func Ensure(root string) (Layout, error) {
	l := Layout{
		Root:     root,
		Worlds:   filepath.Join(root, "worlds"),
		Code:     filepath.Join(root, "code"),
		Binaries: filepath.Join(root, "binaries"),
	}
	for _, dir := range []string{l.Worlds, l.Code, l.Binaries} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, fmt.Errorf("create workspace dir %s: %w", dir, err)
		}
	}
	return l, nil
}

// WriteCode persists source text to the code workspace and returns the
// full path written.
func (l Layout) WriteCode(name, source string) (string, error) {
	path := filepath.Join(l.Code, name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", fmt.Errorf("write code file: %w", err)
	}
	return path, nil
}

// CopyTree copies the template runtime tree at src over the code workspace,
// preserving existing files that the template does not shadow.
func (l Layout) CopyTree(src string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(l.Code, rel)
		if info.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read template file %s: %w", path, err)
		}
		if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
			return fmt.Errorf("copy template file %s: %w", rel, err)
		}
		return nil
	})
}
