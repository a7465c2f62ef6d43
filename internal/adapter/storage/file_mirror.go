package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rl1809/anemia-history/internal/core/domain"
)

// FileMirror keeps History as one JSON document on local disk. Writes go
// to a temp file in the same directory and are renamed into place, so a
// crash mid-write leaves the previous document intact.
type FileMirror struct {
	path string
}

func NewFileMirror(path string) *FileMirror {
	return &FileMirror{path: path}
}

func (m *FileMirror) Path() string {
	return m.path
}

func (m *FileMirror) Load(ctx context.Context) ([]domain.Record, bool, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", m.path, err)
	}

	records, err := decodeHistory(data)
	if err != nil {
		return nil, true, fmt.Errorf("read %s: %w", m.path, err)
	}
	return records, true, nil
}

func (m *FileMirror) Save(ctx context.Context, records []domain.Record) error {
	data, err := encodeHistory(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("replace %s: %w", m.path, err)
	}
	return nil
}
