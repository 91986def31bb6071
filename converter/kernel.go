package converter

import (
	apperrors "blurrer/shared/errors"
	"fmt"
	"math"
)

// Kernel is the Gaussian convolution window size in pixels.
type Kernel struct {
	Width  int
	Height int
}

func (k Kernel) String() string {
	return fmt.Sprintf("%dx%d", k.Width, k.Height)
}

// Validate rejects sizes the blur cannot centre on a pixel. maxSize <= 0 disables the upper bound.
func (k Kernel) Validate(maxSize int) error {
	for _, side := range []struct {
		name string
		v    int
	}{{"ksize_width", k.Width}, {"ksize_height", k.Height}} {
		switch {
		case side.v <= 0:
			return apperrors.New(apperrors.KindParams, "kernel", fmt.Sprintf("%s must be positive, got %d", side.name, side.v))
		case side.v%2 == 0:
			return apperrors.New(apperrors.KindParams, "kernel", fmt.Sprintf("%s must be odd, got %d", side.name, side.v))
		case maxSize > 0 && side.v > maxSize:
			return apperrors.New(apperrors.KindParams, "kernel", fmt.Sprintf("%s must not exceed %d, got %d", side.name, maxSize, side.v))
		}
	}
	return nil
}

// ValidateSigma accepts zero (derive from the kernel size) and positive finite values.
func ValidateSigma(name string, sigma float64) error {
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma < 0 {
		return apperrors.New(apperrors.KindParams, "sigma", fmt.Sprintf("%s must be a non-negative number, got %v", name, sigma))
	}
	return nil
}

// fixed binomial kernels used for small windows when sigma is derived
var smallGaussianTab = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// AutoSigma is the sigma used for a window of size n when none is given.
func AutoSigma(n int) float64 {
	return 0.3*((float64(n)-1)*0.5-1) + 0.8
}

// GaussianKernel returns n normalised 1-D weights. sigma <= 0 derives it from n.
func GaussianKernel(n int, sigma float64) []float64 {
	if sigma <= 0 {
		if tab, ok := smallGaussianTab[n]; ok {
			out := make([]float64, n)
			copy(out, tab)
			return out
		}
		sigma = AutoSigma(n)
	}

	weights := make([]float64, n)
	scale := -0.5 / (sigma * sigma)
	sum := 0.0
	for i := range weights {
		x := float64(i) - float64(n-1)*0.5
		weights[i] = math.Exp(scale * x * x)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}

	return weights
}

// ResolveSigmas applies the per-axis defaults: a missing sigma_y follows
// sigma_x, and each axis left at zero is derived from its kernel size.
func ResolveSigmas(k Kernel, sigmaX, sigmaY float64) (float64, float64) {
	if sigmaY <= 0 {
		sigmaY = sigmaX
	}
	if sigmaX <= 0 {
		sigmaX = AutoSigma(k.Width)
	}
	if sigmaY <= 0 {
		sigmaY = AutoSigma(k.Height)
	}
	return sigmaX, sigmaY
}
