// Package local stores the checkpoint as a text file on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JakeFAU/adfiller/internal/checkpoint"
)

// Config captures the parameters for the file-backed checkpoint.
type Config struct {
	// Path is the checkpoint file. Parent directories are created on demand.
	Path string `mapstructure:"path" yaml:"path"`
}

// Store reads and atomically replaces a single-line checkpoint file.
type Store struct {
	path string
}

// New creates a file-backed store. The file itself need not exist yet.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("checkpoint path is required")
	}
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Store{path: filepath.Clean(cfg.Path)}, nil
}

// Load parses the stored identifier.
func (s *Store) Load(_ context.Context) (int64, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, checkpoint.ErrNotFound
		}
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint %q: %w", s.path, err)
	}
	return id, nil
}

// Save writes id to a temporary sibling and renames it over the checkpoint.
func (s *Store) Save(_ context.Context, id int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(strconv.FormatInt(id, 10)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
