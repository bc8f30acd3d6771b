package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// fallbackStore tries S3 first and falls back to the local file system.
type fallbackStore struct {
	primary   ImageStore
	secondary ImageStore
	logger    zerolog.Logger
}

// NewFallbackStore creates a store that writes to primary and, on failure, to secondary.
// A nil primary means only secondary is used.
func NewFallbackStore(primary, secondary ImageStore, logger zerolog.Logger) ImageStore {
	return &fallbackStore{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "fallback-image-store").Logger(),
	}
}

// Save buffers the body so it can be replayed to the secondary store.
func (s *fallbackStore) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if s.primary == nil {
		return s.secondary.Save(ctx, key, contentType, body)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read image body: %w", err)
	}

	stored, err := s.primary.Save(ctx, key, contentType, bytes.NewReader(data))
	if err == nil {
		return stored, nil
	}

	s.logger.Warn().
		Err(err).
		Str("key", key).
		Msg("primary image store failed, falling back to local file system")

	return s.secondary.Save(ctx, key, contentType, bytes.NewReader(data))
}

// Delete removes key from both stores, since a saved image may live in either.
func (s *fallbackStore) Delete(ctx context.Context, key string) error {
	if s.primary == nil {
		return s.secondary.Delete(ctx, key)
	}
	return errors.Join(s.primary.Delete(ctx, key), s.secondary.Delete(ctx, key))
}
