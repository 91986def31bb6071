//go:build with_vips

package vips

import (
	"blurrer/converter"
	apperrors "blurrer/shared/errors"
	"bytes"
	"context"
	"github.com/h2non/bimg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func newEngine(t *testing.T) *Engine {
	return New(zaptest.NewLogger(t), converter.Options{JPEGQuality: 95})
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestConvertSolidRedStaysUniform(t *testing.T) {
	job := converter.Job{Kernel: converter.Kernel{Width: 45, Height: 45}, Format: converter.PNG, Mode: converter.ReadColor}
	res, err := newEngine(t).Convert(context.Background(), converter.Source{Data: solidPNG(t, 10, 10, color.NRGBA{R: 255, A: 255})}, job)
	require.NoError(t, err)

	assert.Equal(t, 10, res.Width)
	assert.Equal(t, 10, res.Height)
	assert.Equal(t, 3, res.Channels)

	out, err := png.Decode(bytes.NewReader(res.Body))
	require.NoError(t, err)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			r, g, b, a := out.At(x, y).RGBA()
			assert.InDelta(t, 255, r>>8, 2)
			assert.InDelta(t, 0, g>>8, 2)
			assert.InDelta(t, 0, b>>8, 2)
			assert.Equal(t, uint32(0xffff), a)
		}
	}
}

func TestConvertKeepsDimensions(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		kernel converter.Kernel
		format converter.Format
	}{
		{name: "square png", w: 32, h: 32, kernel: converter.Kernel{Width: 5, Height: 5}, format: converter.PNG},
		{name: "wide jpeg", w: 64, h: 16, kernel: converter.Kernel{Width: 9, Height: 9}, format: converter.JPEG},
		{name: "kernel larger than image", w: 7, h: 5, kernel: converter.Kernel{Width: 45, Height: 45}, format: converter.PNG},
		{name: "tiff", w: 12, h: 12, kernel: converter.Kernel{Width: 3, Height: 3}, format: converter.TIFF},
	}

	e := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := converter.Job{Kernel: tt.kernel, Format: tt.format, Mode: converter.ReadUnchanged}
			require.NoError(t, job.Validate(e, 0))

			res, err := e.Convert(context.Background(), converter.Source{Data: solidPNG(t, tt.w, tt.h, color.White)}, job)
			require.NoError(t, err)

			size, err := bimg.NewImage(res.Body).Size()
			require.NoError(t, err)
			assert.Equal(t, tt.w, size.Width)
			assert.Equal(t, tt.h, size.Height)
		})
	}
}

func TestValidateRejectsAnisotropicJobs(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name string
		job  converter.Job
	}{
		{name: "wide kernel", job: converter.Job{Kernel: converter.Kernel{Width: 45, Height: 3}, Format: converter.PNG}},
		{name: "different sigmas", job: converter.Job{Kernel: converter.Kernel{Width: 5, Height: 5}, SigmaX: 1, SigmaY: 2, Format: converter.PNG}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate(e, 0)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindParams, apperrors.KindOf(err))
		})
	}

	assert.NoError(t, converter.Job{Kernel: converter.Kernel{Width: 5, Height: 5}, SigmaX: 2, Format: converter.PNG}.Validate(e, 0))
}

func TestConvertRejectsCorruptInput(t *testing.T) {
	job := converter.Job{Kernel: converter.Kernel{Width: 3, Height: 3}, Format: converter.PNG}
	_, err := newEngine(t).Convert(context.Background(), converter.Source{Data: []byte("definitely not an image")}, job)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInput, apperrors.KindOf(err))
}
