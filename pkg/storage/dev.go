package storage

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
)

// DevGateway validates files and fabricates URLs without storing any
// bytes. Used in development so onboarding flows work without Cloudinary
// credentials.
type DevGateway struct {
	Log func(action, detail string)
}

// Upload validates the file and returns a fake secure URL.
func (g *DevGateway) Upload(ctx context.Context, file *multipart.FileHeader, folder string, maxSizeMB int64) (string, error) {
	if err := ValidateFile(file, maxSizeMB); err != nil {
		return "", err
	}

	url := fmt.Sprintf("https://storage.dev.invalid/upload/v1/%s/%s", folder, uuid.New().String())
	if g.Log != nil {
		g.Log("upload", fmt.Sprintf("%s -> %s", file.Filename, url))
	}
	return url, nil
}

// Delete logs the deletion and succeeds.
func (g *DevGateway) Delete(ctx context.Context, fileURL string) error {
	if g.Log != nil {
		g.Log("delete", fileURL)
	}
	return nil
}
