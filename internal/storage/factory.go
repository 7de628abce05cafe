package storage

import (
	"context"
	"fmt"

	"showcase/internal/config"
)

// New builds the mediator over the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (*Mediator, error) {
	var backend Store
	switch cfg.Backend {
	case config.StorageLocal:
		local, err := NewDirStore(cfg.LocalDir, cfg.PublicPath)
		if err != nil {
			return nil, err
		}
		backend = local
	case config.StorageS3:
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		backend = NewS3Store(client, cfg.S3Bucket, S3PublicURL(cfg))
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	return NewMediator(backend, cfg.MaxUploadBytes), nil
}
