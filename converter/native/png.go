package native

import (
	"blurrer/shared/log"
	"context"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"image"
	"image/png"
	"io"
)

type Png struct {
	logger *zap.Logger
}

func mustPng(logger *zap.Logger) *Png {
	return &Png{logger: logger}
}

func (p *Png) Encode(ctx context.Context, w io.Writer, img image.Image) error {
	log.LoggerWithTrace(ctx, p.logger).Debug("Encoding image as png")

	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression))
}
