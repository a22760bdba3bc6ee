package gameconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadRaw returns the file contents. A missing file is reported through
// found rather than as an error.
func ReadRaw(path string) (content string, found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// WriteRaw replaces the file through a temp file in the same directory, so
// the game never reads a half written config.
func WriteRaw(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("gameconfig: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cfg-*")
	if err != nil {
		return fmt.Errorf("gameconfig: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("gameconfig: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("gameconfig: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("gameconfig: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("gameconfig: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("gameconfig: rename: %w", err)
	}
	return nil
}

// Load parses the file at path; a missing file yields an empty document.
func Load(path string) (*Document, error) {
	raw, _, err := ReadRaw(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw), nil
}

func Save(path string, doc *Document) error {
	return WriteRaw(path, doc.Serialize())
}

// Snapshot captures the file so a failed launch can put it back.
type Snapshot struct {
	path    string
	content string
	found   bool
}

func TakeSnapshot(path string) (*Snapshot, error) {
	content, found, err := ReadRaw(path)
	if err != nil {
		return nil, err
	}
	return &Snapshot{path: path, content: content, found: found}, nil
}

func (s *Snapshot) Restore() error {
	if !s.found {
		err := os.Remove(s.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return WriteRaw(s.path, s.content)
}
