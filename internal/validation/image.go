package validation

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	maxImageBytes = 5 * 1024 * 1024
	maxImageWidth  = 2048
	maxImageHeight = 2048
)

var allowedImageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
}

var allowedImageMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Image validates an uploaded profile picture: size, file extension, sniffed
// content type (byte signature, not the client-declared type) and, where the
// format is decodable, pixel dimensions.
func Image(data []byte, filename string) error {
	if len(data) > maxImageBytes {
		return fmt.Errorf("image file too large; maximum size is 5MB")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return fmt.Errorf("invalid file type; allowed types: JPG, PNG, GIF, WebP")
	}

	detected := mimetype.Detect(data)
	if _, ok := allowedImageMIMETypes[detected.String()]; !ok {
		return fmt.Errorf("invalid file content; file appears to be %s", detected.String())
	}

	// Dimension enforcement is best-effort: formats the standard decoders
	// can't parse headers for (webp) are let through on the sniff alone.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if cfg.Width > maxImageWidth || cfg.Height > maxImageHeight {
			return fmt.Errorf("image dimensions too large; maximum is %dx%d", maxImageWidth, maxImageHeight)
		}
	}

	return nil
}
