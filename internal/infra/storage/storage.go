// Package storage issues presigned URLs so clients upload images straight to
// object storage without routing the bytes through this service.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mailforge/config"
)

var ErrInvalidConfig = errors.New("storage: invalid config")

// Presigner issues time-limited URLs for a single bucket.
type Presigner interface {
	// PresignPut returns a URL that accepts one PUT of an object with the given content type.
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	// PresignGet returns a URL that allows downloading the object.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// New picks the driver named in the config.
func New(ctx context.Context, cfg config.Storage) (Presigner, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	switch cfg.Driver {
	case "s3", "":
		return NewS3(ctx, S3Options{
			Bucket:       cfg.Bucket,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			AccessKey:    cfg.AccessKey,
			SecretKey:    cfg.SecretKey,
			UsePathStyle: cfg.UsePathStyle,
		})
	case "minio":
		return NewMinIO(MinIOOptions{
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	}
	return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
}
