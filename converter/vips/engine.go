//go:build with_vips

// Package vips blurs through libvips. Build with -tags with_vips.
package vips

import (
	"blurrer/converter"
	apperrors "blurrer/shared/errors"
	"blurrer/shared/log"
	"context"
	"errors"
	"fmt"
	"github.com/h2non/bimg"
	"go.uber.org/zap"
	"math"
)

const Name = "vips"

func init() {
	converter.Register(Name, func(logger *zap.Logger, opts converter.Options) (converter.Engine, error) {
		return New(logger, opts), nil
	})
}

type Engine struct {
	encoders map[converter.Format]Encoder
	logger   *zap.Logger
}

func New(logger *zap.Logger, opts converter.Options) *Engine {
	return &Engine{
		encoders: map[converter.Format]Encoder{
			converter.PNG:  mustFormat(logger, bimg.PNG, 0),
			converter.JPEG: mustFormat(logger, bimg.JPEG, opts.JPEGQuality),
			converter.WEBP: mustFormat(logger, bimg.WEBP, opts.WebPQuality),
			converter.TIFF: mustFormat(logger, bimg.TIFF, 0),
			converter.GIF:  mustFormat(logger, bimg.GIF, 0),
			converter.AVIF: mustFormat(logger, bimg.AVIF, opts.WebPQuality),
		},
		logger: logger,
	}
}

func (e *Engine) Name() string {
	return Name
}

func (e *Engine) Supports(f converter.Format) bool {
	enc, ok := e.encoders[f]
	return ok && enc.Available()
}

func (e *Engine) Convert(ctx context.Context, src converter.Source, job converter.Job) (*converter.Result, error) {
	logger := log.LoggerWithTrace(ctx, e.logger)

	enc, ok := e.encoders[job.Format]
	if !ok {
		return nil, unsupported(job.Format)
	}

	img := NewCustomImage(enc)
	if err := img.Load(src); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size, err := img.Size()
	if err != nil {
		logger.Debug("Decode failed", zap.Error(err))
		return nil, converter.DecodeError(err)
	}

	body, err := img.Encode(ctx, blurOptions(job))
	if err != nil {
		return nil, err
	}

	channels := 3
	if job.Mode == converter.ReadUnchanged {
		channels = img.Channels()
	}

	return &converter.Result{Body: body, Width: size.Width, Height: size.Height, Channels: channels}, nil
}

// CheckJob rejects anisotropic jobs: libvips blurs with a single sigma.
func (e *Engine) CheckJob(job converter.Job) error {
	sigmaX, sigmaY := converter.ResolveSigmas(job.Kernel, job.SigmaX, job.SigmaY)
	if job.Kernel.Width != job.Kernel.Height || math.Abs(sigmaX-sigmaY) > 1e-9 {
		return apperrors.New(apperrors.KindParams, "blur",
			fmt.Sprintf("the %s engine only blurs with square kernels and equal sigmas, got %s with sigmas %g/%g", Name, job.Kernel, sigmaX, sigmaY))
	}
	return nil
}

// blurOptions maps the kernel onto libvips' isotropic blur: the larger of the
// two sigmas, with the mask cut where the Gaussian drops below its value at
// the kernel radius.
func blurOptions(job converter.Job) bimg.Options {
	sigmaX, sigmaY := converter.ResolveSigmas(job.Kernel, job.SigmaX, job.SigmaY)
	sigma := math.Max(sigmaX, sigmaY)

	radius := float64(max(job.Kernel.Width, job.Kernel.Height) / 2)
	minAmpl := math.Exp(-(radius * radius) / (2 * sigma * sigma))
	if radius == 0 || minAmpl <= 0 {
		minAmpl = 0.2
	}

	opts := bimg.Options{
		GaussianBlur: bimg.GaussianBlur{Sigma: sigma, MinAmpl: minAmpl},
		NoAutoRotate: true,
	}
	if job.Mode == converter.ReadColor {
		opts.Flatten = true
		opts.Background = bimg.Color{}
	}

	return opts
}

var errNoEncoder = errors.New("no encoder")

func unsupported(f converter.Format) error {
	return apperrors.Wrap(apperrors.KindParams, "encode", fmt.Sprintf("format %q is not supported by the %s engine", f, Name), errNoEncoder)
}
