// Package blob stores report artifacts on the local filesystem under a
// container directory, with HMAC-signed time-limited read URLs standing
// in for cloud SAS links.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
)

// contentTypeFile sits next to each blob and records its MIME type.
const contentTypeSuffix = ".contenttype"

// Store implements interfaces.ObjectStore on a local directory.
type Store struct {
	root   string // {dir}/{container}
	signer *signer
	base   string // public base URL for signed links
	logger *common.Logger
}

// NewStore creates the container directory and returns a store over it.
func NewStore(logger *common.Logger, cfg *config.BlobConfig) (*Store, error) {
	root := filepath.Join(cfg.Dir, cfg.Container)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob container: %w", err)
	}
	return &Store{
		root:   root,
		signer: newSigner(cfg.SigningKey),
		base:   strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger: logger,
	}, nil
}

var _ interfaces.ObjectStore = (*Store)(nil)

// resolve maps a blob path onto the filesystem, rejecting traversal.
func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("empty blob path")
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes a blob, creating parent directories as needed.
func (s *Store) Put(_ context.Context, path, contentType string, data []byte) error {
	fp, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(fp, data, 0644); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", path, err)
	}
	if contentType != "" {
		if err := os.WriteFile(fp+contentTypeSuffix, []byte(contentType), 0644); err != nil {
			return fmt.Errorf("failed to write blob metadata %s: %w", path, err)
		}
	}
	s.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("blob written")
	return nil
}

// Get reads a blob and its content type.
func (s *Store) Get(_ context.Context, path string) ([]byte, string, error) {
	fp, err := s.resolve(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("blob %s: %w", path, interfaces.ErrNotFound)
		}
		return nil, "", fmt.Errorf("failed to read blob %s: %w", path, err)
	}
	contentType := "application/octet-stream"
	if ct, err := os.ReadFile(fp + contentTypeSuffix); err == nil && len(ct) > 0 {
		contentType = string(ct)
	}
	return data, contentType, nil
}

// Delete removes a blob. Missing blobs are not an error.
func (s *Store) Delete(_ context.Context, path string) error {
	fp, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", path, err)
	}
	os.Remove(fp + contentTypeSuffix)
	return nil
}

// DeletePrefix removes every blob under the given path prefix.
func (s *Store) DeletePrefix(_ context.Context, prefix string) error {
	fp, err := s.resolve(prefix)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(fp); err != nil {
		return fmt.Errorf("failed to delete blob prefix %s: %w", prefix, err)
	}
	return nil
}
