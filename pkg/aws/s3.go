package aws

import (
	"affiliate/pkg/config"
	"fmt"
	"time"

	"github.com/gofiber/storage/s3/v2"
)

// S3 stores product images in an S3 compatible bucket (AWS or MinIO).
type S3 struct {
	bucket    *s3.Storage
	publicURL string
}

func NewS3Bucket(cfg *config.AppConfig) *S3 {
	storage := s3.New(s3.Config{
		Endpoint: cfg.AWSEndpoint,
		Bucket:   cfg.AWSBucket,
		Region:   cfg.AWSDefaultRegion,
		Credentials: s3.Credentials{
			AccessKey:       cfg.AWSAccessKey,
			SecretAccessKey: cfg.AWSSecretKey,
		},
		MaxAttempts:    3,
		RequestTimeout: time.Second * 10,
		Reset:          false,
	})

	return &S3{
		bucket:    storage,
		publicURL: PublicBaseURL(cfg),
	}
}

func (s *S3) Upload(key string, data []byte) error {
	// Zero expiry: product images never expire.
	return s.bucket.Set(key, data, 0)
}

// URL returns the public URL of an uploaded object.
func (s *S3) URL(key string) string {
	if s.publicURL == "" {
		return key
	}
	return s.publicURL + "/" + key
}

// PublicBaseURL is endpoint/bucket for MinIO style setups and the virtual
// hosted AWS form otherwise.
func PublicBaseURL(cfg *config.AppConfig) string {
	if cfg.AWSEndpoint != "" {
		return fmt.Sprintf("%s/%s", cfg.AWSEndpoint, cfg.AWSBucket)
	}

	if cfg.AWSDefaultRegion != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.AWSBucket, cfg.AWSDefaultRegion)
	}

	return ""
}
