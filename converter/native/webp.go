//go:build cgo

package native

import (
	"blurrer/converter"
	"blurrer/shared/log"
	"context"
	"fmt"
	"github.com/chai2010/webp"
	"go.uber.org/zap"
	"image"
	"io"
)

type Webp struct {
	quality float32
	logger  *zap.Logger
}

func registerWebp(m map[converter.Format]Encoder, logger *zap.Logger, quality int) {
	if quality <= 0 || quality > 100 {
		quality = 100
	}
	m[converter.WEBP] = &Webp{quality: float32(quality), logger: logger}
}

func (w *Webp) Encode(ctx context.Context, dst io.Writer, img image.Image) error {
	log.LoggerWithTrace(ctx, w.logger).Debug(fmt.Sprintf("Encoding image as webp with quality: %f", w.quality))

	return webp.Encode(dst, img, &webp.Options{Lossless: w.quality == 100, Quality: w.quality})
}
