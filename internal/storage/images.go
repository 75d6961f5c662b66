// Package storage persists uploaded media on the local filesystem.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const pictureDir = "profile_pictures"

// Images stores profile pictures under a media root. Files are written
// under a random name so uploads can never collide or overwrite each other.
type Images struct {
	root string
}

// NewImages creates the picture directory under root if needed.
func NewImages(root string) (*Images, error) {
	if err := os.MkdirAll(filepath.Join(root, pictureDir), 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &Images{root: root}, nil
}

// Save writes the image and returns its media-relative path. Only the
// extension of the client filename is kept.
func (s *Images) Save(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.NewString() + ext
	rel := filepath.ToSlash(filepath.Join(pictureDir, name))

	if err := os.WriteFile(filepath.Join(s.root, pictureDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return rel, nil
}

// Delete removes a previously stored image. The path must be one returned
// by Save; anything pointing outside the media root is rejected.
func (s *Images) Delete(path string) error {
	clean := filepath.Clean(filepath.FromSlash(path))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid media path %q", path)
	}
	if err := os.Remove(filepath.Join(s.root, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
