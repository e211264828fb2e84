package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryGateway implements Gateway against Cloudinary.
type CloudinaryGateway struct {
	cld     *cloudinary.Cloudinary
	timeout time.Duration
}

// NewCloudinaryGateway creates a gateway from account credentials.
func NewCloudinaryGateway(cloudName, apiKey, apiSecret string, timeout time.Duration) (*CloudinaryGateway, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary: %w", err)
	}

	return &CloudinaryGateway{cld: cld, timeout: timeout}, nil
}

// Upload validates the file and stores it under the given folder. Returns
// the secure URL of the stored document.
func (g *CloudinaryGateway) Upload(ctx context.Context, file *multipart.FileHeader, folder string, maxSizeMB int64) (string, error) {
	if err := ValidateFile(file, maxSizeMB); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.cld.Upload.Upload(ctx, src, uploader.UploadParams{
		Folder:       folder,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}

	return res.SecureURL, nil
}

// Delete removes a stored document by its secure URL.
func (g *CloudinaryGateway) Delete(ctx context.Context, fileURL string) error {
	publicID, err := ExtractPublicID(fileURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	_, err = g.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}
