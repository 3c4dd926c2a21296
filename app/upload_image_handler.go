package app

import (
	"affiliate/pkg/httperror"
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxImageSize = 5 * 1024 * 1024

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/webp": ".webp",
}

// ImageStorage is where product images end up (S3 or MinIO in production).
type ImageStorage interface {
	Upload(key string, data []byte) error
	URL(key string) string
}

type UploadImageHandler struct {
	storage ImageStorage
}

func NewUploadImageHandler(storage ImageStorage) *UploadImageHandler {
	return &UploadImageHandler{
		storage: storage,
	}
}

type UploadImageRequest struct {
	FileName    string
	ContentType string
	Data        []byte
}

type UploadImageResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (UploadImageResponse) StatusCode() int {
	return 201
}

func (h UploadImageHandler) Handle(ctx context.Context, req *UploadImageRequest) (*UploadImageResponse, error) {
	if h.storage == nil {
		return nil, httperror.ServiceUnavailable(
			"upload.storage_unavailable",
			"Image storage is not configured",
			nil,
		)
	}

	if len(req.Data) == 0 {
		return nil, httperror.BadRequest("upload.missing_file", "Image file is required (use 'image' field)", nil)
	}

	if len(req.Data) > maxImageSize {
		return nil, httperror.BadRequest("upload.file_too_large", "File size must not exceed 5MB",
			map[string]any{
				"size_mb": float64(len(req.Data)) / 1024 / 1024,
				"max_mb":  5,
			})
	}

	extension, ok := allowedImageTypes[req.ContentType]
	if !ok {
		return nil, httperror.BadRequest("upload.invalid_content_type", "Only PNG, JPEG and WEBP images are allowed",
			map[string]any{
				"received": req.ContentType,
				"allowed":  []string{"image/png", "image/jpeg", "image/webp"},
			})
	}

	key := fmt.Sprintf("products/%s%s", uuid.New().String(), extension)

	if err := h.storage.Upload(key, req.Data); err != nil {
		return nil, httperror.InternalServerError("upload.upload_failed", "Failed to upload image to storage", nil).WithCause(err)
	}

	zap.L().Info("Product image uploaded",
		zap.String("key", key),
		zap.String("fileName", req.FileName),
		zap.Int("bytes", len(req.Data)),
	)

	return &UploadImageResponse{
		Key: key,
		URL: h.storage.URL(key),
	}, nil
}
