// Package media re-hosts channel media into durable storage. Media URLs
// handed out by the chat channel expire within minutes, so every accepted
// photo or document is downloaded once and stored under a stable URL.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/internal/fsstore"
)

type Store struct {
	dir     string
	baseURL string
	gateway external.Gateway
	logger  *slog.Logger
}

func NewStore(dir, baseURL string, gateway external.Gateway, logger *slog.Logger) (*Store, error) {
	if err := fsstore.EnsureDir(dir, 0); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		gateway: gateway,
		logger:  logger,
	}, nil
}

// Dir returns the storage root, served by the HTTP file handler.
func (s *Store) Dir() string { return s.dir }

// Rehost downloads one media object from the channel and stores it
// durably, returning the stable public URL.
func (s *Store) Rehost(ctx context.Context, mediaRef string) (string, error) {
	data, contentType, err := s.gateway.DownloadMedia(ctx, mediaRef)
	if err != nil {
		return "", fmt.Errorf("fetch channel media: %w", err)
	}

	name := uuid.NewString() + extensionFor(contentType)
	path := filepath.Join(s.dir, name)
	if err := fsstore.WriteAtomic(path, data, 0); err != nil {
		return "", err
	}

	url := s.baseURL + "/media/" + name
	s.logger.Debug("media_rehosted", "media_ref", mediaRef, "bytes", len(data), "url", url)
	return url, nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
