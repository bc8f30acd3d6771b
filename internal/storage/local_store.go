package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// localStore implements ImageStore on the local file system.
type localStore struct {
	root   string
	logger zerolog.Logger
}

// NewLocalStore creates a store that writes under root.
func NewLocalStore(root string, logger zerolog.Logger) ImageStore {
	return &localStore{
		root:   root,
		logger: logger.With().Str("component", "local-image-store").Logger(),
	}
}

// Save writes body to root/key, creating directories as needed.
func (s *localStore) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, clean)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		s.logger.Error().Err(err).Str("path", target).Msg("failed to create upload directory")
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		s.logger.Error().Err(err).Str("path", target).Msg("failed to create image file")
		return "", fmt.Errorf("failed to create image file %s: %w", target, err)
	}

	if _, err := io.Copy(file, body); err != nil {
		file.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to write image file %s: %w", target, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close image file %s: %w", target, err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(target)
		return "", err
	}

	s.logger.Info().Str("path", target).Msg("image stored locally")
	return filepath.ToSlash(clean), nil
}

// Delete removes root/key. A file that is already gone is not an error.
func (s *localStore) Delete(ctx context.Context, key string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	target := filepath.Join(s.root, clean)
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error().Err(err).Str("path", target).Msg("failed to delete image file")
		return fmt.Errorf("failed to delete image file %s: %w", target, err)
	}
	return nil
}

// cleanKey keeps keys inside the store root.
func cleanKey(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return clean, nil
}
