//go:build with_cv

// Package opencv blurs through OpenCV via gocv. Build with -tags with_cv.
package opencv

import (
	"blurrer/converter"
	apperrors "blurrer/shared/errors"
	"blurrer/shared/log"
	"bytes"
	"context"
	"fmt"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"image"
)

const Name = "opencv"

func init() {
	converter.Register(Name, func(logger *zap.Logger, opts converter.Options) (converter.Engine, error) {
		return New(logger, opts), nil
	})
}

var fileExts = map[converter.Format]gocv.FileExt{
	converter.PNG:  gocv.PNGFileExt,
	converter.JPEG: gocv.JPEGFileExt,
	converter.WEBP: gocv.FileExt(".webp"),
	converter.BMP:  gocv.FileExt(".bmp"),
	converter.TIFF: gocv.FileExt(".tiff"),
}

type Engine struct {
	jpegQuality int
	webpQuality int
	logger      *zap.Logger
}

func New(logger *zap.Logger, opts converter.Options) *Engine {
	return &Engine{jpegQuality: opts.JPEGQuality, webpQuality: opts.WebPQuality, logger: logger}
}

func (e *Engine) Name() string {
	return Name
}

func (e *Engine) Supports(f converter.Format) bool {
	_, ok := fileExts[f]
	return ok
}

func (e *Engine) Convert(ctx context.Context, src converter.Source, job converter.Job) (*converter.Result, error) {
	logger := log.LoggerWithTrace(ctx, e.logger)

	ext, ok := fileExts[job.Format]
	if !ok {
		return nil, apperrors.New(apperrors.KindParams, "encode", fmt.Sprintf("format %q is not supported by the %s engine", job.Format, Name))
	}

	mat, err := read(src, job.Mode)
	if err != nil {
		logger.Debug("Decode failed", zap.Error(err))
		return nil, converter.DecodeError(err)
	}
	defer mat.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blurred := gocv.NewMat()
	defer blurred.Close()

	ksize := image.Pt(job.Kernel.Width, job.Kernel.Height)
	if err := gocv.GaussianBlur(mat, &blurred, ksize, job.SigmaX, job.SigmaY, gocv.BorderDefault); err != nil {
		logger.Error("GaussianBlur failed", zap.Error(err))
		return nil, converter.BlurError(err)
	}

	buf, err := gocv.IMEncodeWithParams(ext, blurred, e.params(job.Format))
	if err != nil {
		logger.Error("Encode failed", zap.Stringer("format", job.Format), zap.Error(err))
		return nil, converter.EncodeError(job.Format, err)
	}
	defer buf.Close()

	return &converter.Result{
		Body:     bytes.Clone(buf.GetBytes()),
		Width:    blurred.Cols(),
		Height:   blurred.Rows(),
		Channels: blurred.Channels(),
	}, nil
}

func (e *Engine) params(f converter.Format) []int {
	switch {
	case f == converter.JPEG && e.jpegQuality > 0:
		return []int{gocv.IMWriteJpegQuality, e.jpegQuality}
	case f == converter.WEBP && e.webpQuality > 0:
		return []int{gocv.IMWriteWebpQuality, e.webpQuality}
	default:
		return []int{}
	}
}

func read(src converter.Source, mode converter.ReadMode) (gocv.Mat, error) {
	flag := gocv.IMReadColor
	if mode == converter.ReadUnchanged {
		flag = gocv.IMReadUnchanged
	}

	var (
		mat gocv.Mat
		err error
	)
	switch {
	case len(src.Data) > 0:
		mat, err = gocv.IMDecode(src.Data, flag)
	case src.Path != "":
		mat = gocv.IMRead(src.Path, flag)
	default:
		return mat, converter.ErrEmptySource
	}
	if err != nil {
		mat.Close()
		return mat, err
	}

	if mat.Empty() {
		mat.Close()
		return mat, converter.ErrEmptyImage
	}

	return mat, nil
}
