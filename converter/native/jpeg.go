package native

import (
	"blurrer/shared/log"
	"context"
	"fmt"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"image"
	"io"
)

type Jpeg struct {
	quality int
	logger  *zap.Logger
}

func mustJpeg(logger *zap.Logger, quality int) *Jpeg {
	if quality <= 0 || quality > 100 {
		quality = 95
	}
	return &Jpeg{quality: quality, logger: logger}
}

func (j *Jpeg) Encode(ctx context.Context, w io.Writer, img image.Image) error {
	log.LoggerWithTrace(ctx, j.logger).Debug(fmt.Sprintf("Encoding image as jpeg with quality: %d", j.quality))

	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(j.quality))
}
