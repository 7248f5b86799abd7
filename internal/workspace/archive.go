package workspace

import (
	"archive/zip"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DecodePayload strips an optional data: URI wrapper and decodes the
// base64 archive body.
func DecodePayload(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		_, body, ok := strings.Cut(payload, "base64,")
		if !ok {
			return nil, fmt.Errorf("data URI without base64 marker")
		}
		payload = body
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	return raw, nil
}

// ExtractWorld writes a decoded archive payload under the worlds directory
// as <name>.zip and extracts it into a like-named directory. The extracted
// directory path is returned.
func (l Layout) ExtractWorld(name, payload string) (string, error) {
	raw, err := DecodePayload(payload)
	if err != nil {
		return "", err
	}

	zipPath := filepath.Join(l.Worlds, name+".zip")
	if err := os.WriteFile(zipPath, raw, 0o644); err != nil {
		return "", fmt.Errorf("write world archive: %w", err)
	}

	dest := filepath.Join(l.Worlds, name)
	if err := extractZip(zipPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// ExtractApp writes a decoded application archive into the code directory
// and extracts it in place.
func (l Layout) ExtractApp(payload string) error {
	raw, err := DecodePayload(payload)
	if err != nil {
		return err
	}

	zipPath := filepath.Join(l.Code, "app.zip")
	if err := os.WriteFile(zipPath, raw, 0o644); err != nil {
		return fmt.Errorf("write app archive: %w", err)
	}
	return extractZip(zipPath, l.Code)
}

func extractZip(zipPath, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create extract dir: %w", err)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractEntry(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, dest string) error {
	// Reject entries escaping the destination (zip-slip).
	target := filepath.Join(dest, f.Name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes destination", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}
