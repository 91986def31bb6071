package native

import (
	"blurrer/shared/log"
	"context"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"image"
	"io"
)

// Raster covers the formats imaging encodes without options.
type Raster struct {
	format imaging.Format
	logger *zap.Logger
}

func mustRaster(logger *zap.Logger, format imaging.Format) *Raster {
	return &Raster{format: format, logger: logger}
}

func (r *Raster) Encode(ctx context.Context, w io.Writer, img image.Image) error {
	log.LoggerWithTrace(ctx, r.logger).Debug("Encoding image", zap.Stringer("format", r.format))

	return imaging.Encode(w, img, r.format)
}
