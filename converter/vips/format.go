//go:build with_vips

package vips

import (
	"blurrer/converter"
	"blurrer/shared/log"
	"context"
	"fmt"
	"github.com/h2non/bimg"
	"go.uber.org/zap"
)

type Encoder interface {
	Available() bool
	Encode(ctx context.Context, img *bimg.Image, opts bimg.Options) ([]byte, error)
}

// Format encodes through a single libvips saver.
type Format struct {
	t       bimg.ImageType
	quality int

	logger *zap.Logger
}

func mustFormat(logger *zap.Logger, t bimg.ImageType, quality int) *Format {
	return &Format{t: t, quality: quality, logger: logger}
}

func (f *Format) Available() bool {
	return bimg.IsTypeSupportedSave(f.t)
}

func (f *Format) Encode(ctx context.Context, img *bimg.Image, opts bimg.Options) ([]byte, error) {
	logger := log.LoggerWithTrace(ctx, f.logger)
	logger.Debug(fmt.Sprintf("Blurring image with sigma %.3f and encoding as %s", opts.GaussianBlur.Sigma, bimg.ImageTypeName(f.t)))

	opts.Type = f.t
	if f.quality > 0 {
		opts.Quality = f.quality
	}

	buf, err := img.Process(opts)
	if err != nil {
		logger.Error("Error processing image", zap.Error(err))
		return nil, converter.BlurError(err)
	}

	return buf, nil
}
