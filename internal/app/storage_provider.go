package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/tripseal-backend/internal/platform/gcp"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

var newImageBucket = gcp.NewImageBucket

// ImageStoreError reports why the seal photo bucket could not be opened.
// Code reuses the gcp config codes plus "connect_failed".
type ImageStoreError struct {
	Code         string
	Mode         gcp.ObjectStorageMode
	EmulatorHost string
	Cause        error
}

const imageStoreConnectFailed = "connect_failed"

func (e *ImageStoreError) Error() string {
	return fmt.Sprintf("image store %s (mode=%q emulator_host=%q): %v", e.Code, e.Mode, e.EmulatorHost, e.Cause)
}

func (e *ImageStoreError) Unwrap() error { return e.Cause }

// resolveImageBucket returns nil for inline mode; images then stay in activity
// log payloads.
func resolveImageBucket(ctx context.Context, log *logger.Logger, cfg gcp.ObjectStorageConfig) (gcp.ImageBucket, error) {
	if !gcp.IsSupportedObjectStorageMode(cfg.Mode) {
		err := classifyImageStoreError(cfg, &gcp.ObjectStorageConfigError{
			Code: gcp.ObjectStorageConfigErrorInvalidMode,
			Mode: string(cfg.Mode),
		})
		log.Error("Image store mode rejected", "mode", cfg.Mode, "mode_source", cfg.ModeSource(), "error", err)
		return nil, err
	}
	log.Info("Image store selected",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"bucket", cfg.BucketName,
		"emulator_host", cfg.EmulatorHost,
	)
	if !cfg.UsesBucket() {
		return nil, nil
	}
	bucket, err := newImageBucket(ctx, log, cfg)
	if err != nil {
		err = classifyImageStoreError(cfg, err)
		log.Error("Image store unavailable", "mode", cfg.Mode, "bucket", cfg.BucketName, "error", err)
		return nil, err
	}
	return bucket, nil
}

func classifyImageStoreError(cfg gcp.ObjectStorageConfig, err error) error {
	out := &ImageStoreError{
		Code:         imageStoreConnectFailed,
		Mode:         cfg.Mode,
		EmulatorHost: cfg.EmulatorHost,
		Cause:        err,
	}
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) && cfgErr.Code != "" {
		out.Code = string(cfgErr.Code)
	}
	return out
}
