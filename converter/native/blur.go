package native

import (
	"blurrer/converter"
	"context"
	"github.com/anthonynsimon/bild/convolution"
	"image"
	"math"
)

// Blur applies the job's separable Gaussian kernel with reflect-101 borders.
// Every channel is convolved on its own in straight alpha space; alpha is
// left untouched unless withAlpha is set. The result has the bounds of src
// translated to the origin.
func Blur(ctx context.Context, src *image.NRGBA, job converter.Job, withAlpha bool) (*image.NRGBA, error) {
	kx, ky := job.AxisKernels()
	padX, padY := len(kx)/2, len(ky)/2

	canvas := padReflect101(samples(src), padX, padY)

	out, err := convolve(ctx, canvas, kx, ky)
	if err != nil {
		return nil, err
	}

	if withAlpha {
		alpha, err := convolve(ctx, alphaAsRed(canvas), kx, ky)
		if err != nil {
			return nil, err
		}
		for i := 3; i < len(out.Pix); i += 4 {
			out.Pix[i] = alpha.Pix[i-3]
		}
	}

	b := src.Bounds()
	blurred := crop(out, padX, padY, b.Dx(), b.Dy())
	return &image.NRGBA{Pix: blurred.Pix, Stride: blurred.Stride, Rect: blurred.Rect}, nil
}

// convolve runs both passes over the colour channels only. bild treats the
// samples as plain bytes, so straight alpha values survive as they are.
func convolve(ctx context.Context, canvas *image.RGBA, kx, ky []float64) (*image.RGBA, error) {
	// Bias rounds instead of truncating, so flat regions keep their exact value.
	opts := &convolution.Options{Bias: 0.5, KeepAlpha: true}

	horizontal := convolution.NewKernel(len(kx), 1)
	copy(horizontal.Matrix, kx)
	canvas = convolution.Convolve(canvas, horizontal, opts)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vertical := convolution.NewKernel(1, len(ky))
	copy(vertical.Matrix, ky)
	return convolution.Convolve(canvas, vertical, opts), nil
}

// samples views the NRGBA pixels as four independent byte channels.
func samples(src *image.NRGBA) *image.RGBA {
	return &image.RGBA{Pix: src.Pix, Stride: src.Stride, Rect: src.Rect}
}

func alphaAsRed(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	for i := 0; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = src.Pix[i+3]
		dst.Pix[i+3] = 0xff
	}
	return dst
}

func crop(src *image.RGBA, x0, y0, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		from := (y+y0)*src.Stride + x0*4
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], src.Pix[from:from+w*4])
	}
	return dst
}

// Blur16 is Blur for 16-bit samples. src must start at the origin.
func Blur16(ctx context.Context, src *image.NRGBA64, job converter.Job, withAlpha bool) (*image.NRGBA64, error) {
	kx, ky := job.AxisKernels()
	rx, ry := len(kx)/2, len(ky)/2
	w, h := src.Rect.Dx(), src.Rect.Dy()

	channels := 3
	if withAlpha {
		channels = 4
	}

	rows := make([]float64, w*h*4)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			for c := 0; c < channels; c++ {
				var sum float64
				for i, k := range kx {
					sum += k * float64(sample16(row, reflect101(x+i-rx, w), c))
				}
				rows[(y*w+x)*4+c] = sum
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := image.NewNRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			for c := 0; c < 4; c++ {
				if c >= channels {
					putSample16(out, x, c, sample16(src.Pix[y*src.Stride:], x, c))
					continue
				}
				var sum float64
				for i, k := range ky {
					sum += k * rows[(reflect101(y+i-ry, h)*w+x)*4+c]
				}
				putSample16(out, x, c, clamp16(sum))
			}
		}
	}

	return dst, nil
}

func sample16(row []uint8, x, c int) uint16 {
	i := x*8 + c*2
	return uint16(row[i])<<8 | uint16(row[i+1])
}

func putSample16(row []uint8, x, c int, v uint16) {
	i := x*8 + c*2
	row[i], row[i+1] = uint8(v>>8), uint8(v)
}

func clamp16(v float64) uint16 {
	return uint16(math.Max(0, math.Min(math.Round(v), math.MaxUint16)))
}
