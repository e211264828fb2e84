package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// Size ceilings by document class, in megabytes.
const (
	MaxImageSizeMB    = 5  // profile image, national ID photo
	MaxDocumentSizeMB = 10 // criminal record, drug test, car documents, certificates
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// Gateway stores uploaded documents under scoped folders and deletes them
// by their public URL.
type Gateway interface {
	Upload(ctx context.Context, file *multipart.FileHeader, folder string, maxSizeMB int64) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

// ValidateFile rejects files by extension, declared content type, and size
// ceiling before any bytes leave the process.
func ValidateFile(file *multipart.FileHeader, maxSizeMB int64) error {
	if file == nil || file.Filename == "" {
		return fmt.Errorf("no file provided")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("file type %s not allowed (accepted: jpg, jpeg, png, pdf)", ext)
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !allowedContentTypes[contentType] {
		return fmt.Errorf("content type %s not allowed", contentType)
	}

	maxBytes := maxSizeMB * 1024 * 1024
	if file.Size > maxBytes {
		return fmt.Errorf("file exceeds maximum size of %dMB", maxSizeMB)
	}

	return nil
}

// ExtractPublicID recovers the Cloudinary public id from a secure URL so a
// document can be deleted by reference. The URL shape is
// .../upload/v<version>/<folder>/<name>.<ext>.
func ExtractPublicID(fileURL string) (string, error) {
	idx := strings.Index(fileURL, "/upload/")
	if idx == -1 {
		return "", fmt.Errorf("not a recognized storage URL: %s", fileURL)
	}

	path := fileURL[idx+len("/upload/"):]
	parts := strings.Split(path, "/")
	if len(parts) == 0 {
		return "", fmt.Errorf("not a recognized storage URL: %s", fileURL)
	}

	// Drop the version segment if present
	if strings.HasPrefix(parts[0], "v") && len(parts) > 1 {
		allDigits := len(parts[0]) > 1
		for _, c := range parts[0][1:] {
			if c < '0' || c > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			parts = parts[1:]
		}
	}

	publicID := strings.Join(parts, "/")
	if ext := filepath.Ext(publicID); ext != "" {
		publicID = strings.TrimSuffix(publicID, ext)
	}
	if publicID == "" {
		return "", fmt.Errorf("not a recognized storage URL: %s", fileURL)
	}

	return publicID, nil
}
