// Package storage keeps uploaded offer images on local disk or in S3.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/model"
)

// Store is implemented by Local and S3.
type Store interface {
	Put(ctx context.Context, f model.FileInput) (model.FileRef, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		log.Info().Str("path", cfg.LocalPath).Msg("file storage: local")
		return NewLocal(cfg.LocalPath, cfg.PublicBaseURL)
	case "s3":
		log.Info().Str("bucket", cfg.S3Bucket).Str("region", cfg.S3Region).Msg("file storage: s3")
		return NewS3(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// objectKey names a stored file: offers/2026/03/<uuid>-<slug>.<ext>.
func objectKey(filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	base := slug.Make(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	if base == "" {
		base = "file"
	}
	if len(base) > 40 {
		base = strings.Trim(base[:40], "-")
	}
	return fmt.Sprintf("offers/%04d/%02d/%s-%s%s", now.Year(), now.Month(), uuid.NewString(), base, ext)
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
