// shnews/utils/upload.go
package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadFilename builds a collision-resistant name for a stored upload,
// preserving the original extension: image-<nanos>-<random>.<ext>.
func UploadFilename(originalName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		switch contentType {
		case "image/jpeg":
			ext = ".jpg"
		case "image/png":
			ext = ".png"
		case "image/gif":
			ext = ".gif"
		case "image/webp":
			ext = ".webp"
		default:
			ext = ".bin"
		}
	}
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("image-%d-%s%s", GetTime().UnixNano(), suffix, ext)
}

// ThumbFilename derives the thumbnail name for a stored upload.
func ThumbFilename(uploadName string) string {
	base := strings.TrimSuffix(uploadName, filepath.Ext(uploadName))
	return base + "_thumb.jpg"
}
