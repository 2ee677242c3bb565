package assetstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/trevall/carfolio/internal/pkg/env"
)

// Config holds asset store (S3-compatible object storage) configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // Base the delivery network serves objects from
}

// LoadConfig loads asset store configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_BASE_URL", ""),
	}

	if config.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required")
	}
	if config.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required")
	}

	return config, nil
}

// GetObjectKey generates a standardized object key for a processed image
// Format: processed/YYYY/MM/UUID.ext
func (c *Config) GetObjectKey(imageUUID, fileExtension string, t time.Time) string {
	return fmt.Sprintf("processed/%04d/%02d/%s%s", t.Year(), int(t.Month()), imageUUID, fileExtension)
}
