// shnews/handlers/upload.go
package handlers

import (
	"bytes"
	"fmt"
	_ "image/gif" // register decoders for thumbnailing
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"shnews/config"
	"shnews/models"
	"shnews/utils"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// processUpload reads a single optional image from the "image" form field,
// validates it, and stores it plus a thumbnail. Returns the stored paths and
// whether a file was present. Oversized and non-image payloads are rejected
// before anything touches storage.
func processUpload(r *http.Request, app App, logger *slog.Logger) (imageURL, thumbURL string, hasImage bool, err error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("could not get form file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			logger.Error("Failed to close upload file", "error", cerr)
		}
	}()

	limitedReader := &io.LimitedReader{R: file, N: config.MaxUploadSize + 1}
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", "", true, fmt.Errorf("could not read file data: %w", err)
	}
	if limitedReader.N == 0 {
		return "", "", true, fmt.Errorf("file is larger than the %dMB limit", config.MaxUploadSize/1024/1024)
	}
	if len(data) == 0 {
		return "", "", true, fmt.Errorf("file is empty")
	}

	// Magic byte validation; the client-supplied type is not trusted.
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		logger.Warn("Rejected non-image upload", "detected_type", contentType, "filename", header.Filename)
		return "", "", true, fmt.Errorf("only image uploads are allowed, got %s", contentType)
	}

	filename := utils.UploadFilename(header.Filename, contentType)
	imageURL, err = app.Storage().SaveFile(filename, data, contentType)
	if err != nil {
		return "", "", true, fmt.Errorf("could not store image: %w", err)
	}

	// A failed thumbnail never fails the upload; templates fall back to the
	// full image.
	img, derr := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if derr != nil {
		logger.Warn("Could not decode image for thumbnailing", "filename", filename, "error", derr)
		return imageURL, "", true, nil
	}
	thumb := imaging.Fit(img, config.ThumbWidth, config.ThumbHeight, imaging.Lanczos)
	thumbBuf := new(bytes.Buffer)
	if eerr := imaging.Encode(thumbBuf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); eerr != nil {
		logger.Warn("Failed to encode thumbnail", "filename", filename, "error", eerr)
		return imageURL, "", true, nil
	}
	thumbURL, terr := app.Storage().SaveFile(utils.ThumbFilename(filename), thumbBuf.Bytes(), "image/jpeg")
	if terr != nil {
		logger.Warn("Failed to store thumbnail", "filename", filename, "error", terr)
		return imageURL, "", true, nil
	}

	return imageURL, thumbURL, true, nil
}

// deleteNewsImages removes an article's stored image and thumbnail. Absent
// files are tolerated.
func deleteNewsImages(app App, logger *slog.Logger, item *models.News) {
	if item.ImageURL != "" {
		if err := app.Storage().DeleteFile(item.ImageURL); err != nil {
			logger.Warn("Failed to remove image file", "path", item.ImageURL, "error", err)
		}
	}
	if item.ThumbURL != "" {
		if err := app.Storage().DeleteFile(item.ThumbURL); err != nil {
			logger.Warn("Failed to remove thumbnail file", "path", item.ThumbURL, "error", err)
		}
	}
}
