// Package native is the pure Go blur engine. It needs no C libraries and is
// always compiled in.
package native

import (
	"blurrer/converter"
	apperrors "blurrer/shared/errors"
	"blurrer/shared/log"
	"bytes"
	"context"
	"fmt"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
)

const Name = "native"

func init() {
	converter.Register(Name, func(logger *zap.Logger, opts converter.Options) (converter.Engine, error) {
		return New(logger, opts), nil
	})
}

type Encoder interface {
	Encode(ctx context.Context, w io.Writer, img image.Image) error
}

type Engine struct {
	encoders map[converter.Format]Encoder
	logger   *zap.Logger
}

func New(logger *zap.Logger, opts converter.Options) *Engine {
	m := map[converter.Format]Encoder{
		converter.PNG:  mustPng(logger),
		converter.JPEG: mustJpeg(logger, opts.JPEGQuality),
		converter.BMP:  mustRaster(logger, imaging.BMP),
		converter.TIFF: mustRaster(logger, imaging.TIFF),
		converter.GIF:  mustRaster(logger, imaging.GIF),
	}
	registerWebp(m, logger, opts.WebPQuality)

	return &Engine{encoders: m, logger: logger}
}

func (e *Engine) Name() string {
	return Name
}

func (e *Engine) Supports(f converter.Format) bool {
	_, ok := e.encoders[f]
	return ok
}

func (e *Engine) Convert(ctx context.Context, src converter.Source, job converter.Job) (*converter.Result, error) {
	logger := log.LoggerWithTrace(ctx, e.logger)

	data, err := readSource(src)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := decode(data, job.Mode)
	if err != nil {
		logger.Debug("Decode failed", zap.Error(err))
		return nil, converter.DecodeError(err)
	}

	blurred, err := img.blur(ctx, job)
	if err != nil {
		return nil, err
	}

	enc, ok := e.encoders[job.Format]
	if !ok {
		return nil, apperrors.New(apperrors.KindParams, "encode", fmt.Sprintf("format %q is not supported by the %s engine", job.Format, Name))
	}

	var buf bytes.Buffer
	if err := enc.Encode(ctx, &buf, blurred); err != nil {
		logger.Error("Encode failed", zap.Stringer("format", job.Format), zap.Error(err))
		return nil, converter.EncodeError(job.Format, err)
	}

	b := blurred.Bounds()
	return &converter.Result{
		Body:     buf.Bytes(),
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: img.channels,
	}, nil
}

func readSource(src converter.Source) ([]byte, error) {
	if len(src.Data) > 0 {
		return src.Data, nil
	}
	if src.Path == "" {
		return nil, converter.DecodeError(converter.ErrEmptySource)
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "read", "failed to read the persisted upload", err)
	}
	if len(data) == 0 {
		return nil, converter.DecodeError(converter.ErrEmptySource)
	}

	return data, nil
}

// decoded holds straight alpha samples: 8-bit, or 16-bit when an unchanged
// read meets a 16-bit source.
type decoded struct {
	img      *image.NRGBA
	deep     *image.NRGBA64
	gray     bool
	channels int
}

func decode(data []byte, mode converter.ReadMode) (*decoded, error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if src.Bounds().Empty() {
		return nil, converter.ErrEmptyImage
	}

	if mode == converter.ReadColor {
		nrgba := imaging.Clone(src)
		for i := 3; i < len(nrgba.Pix); i += 4 {
			nrgba.Pix[i] = 0xff
		}
		return &decoded{img: nrgba, channels: 3}, nil
	}

	d := &decoded{}
	var opaque bool
	switch src.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		d.deep = toNRGBA64(src)
		opaque = d.deep.Opaque()
	default:
		d.img = imaging.Clone(src)
		opaque = d.img.Opaque()
	}

	switch {
	case src.ColorModel() == color.GrayModel || src.ColorModel() == color.Gray16Model:
		d.gray, d.channels = true, 1
	case opaque:
		d.channels = 3
	default:
		d.channels = 4
	}

	return d, nil
}

// blur leaves alpha alone when it carries no information, so rounding can
// never turn an opaque image translucent.
func (d *decoded) blur(ctx context.Context, job converter.Job) (image.Image, error) {
	withAlpha := d.channels == 4

	if d.deep != nil {
		out, err := Blur16(ctx, d.deep, job, withAlpha)
		if err != nil {
			return nil, err
		}
		if d.gray {
			return convert(image.NewGray16(out.Rect), out), nil
		}
		return out, nil
	}

	out, err := Blur(ctx, d.img, job, withAlpha)
	if err != nil {
		return nil, err
	}
	if d.gray {
		return convert(image.NewGray(out.Rect), out), nil
	}
	return out, nil
}

func convert[T draw.Image](dst T, src image.Image) T {
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

func toNRGBA64(src image.Image) *image.NRGBA64 {
	b := src.Bounds()
	return convert(image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy())), src)
}
