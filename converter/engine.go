package converter

import (
	apperrors "blurrer/shared/errors"
	"context"
	"errors"
	"fmt"
)

// Engine decodes, blurs and re-encodes one image.
type Engine interface {
	Name() string
	Supports(f Format) bool
	Convert(ctx context.Context, src Source, job Job) (*Result, error)
}

// JobChecker is implemented by engines that serve only part of the job space.
type JobChecker interface {
	CheckJob(j Job) error
}

// Source is either an in-memory image or a file on disk. Data wins when both are set.
type Source struct {
	Data []byte
	Path string
}

func (s Source) IsZero() bool {
	return len(s.Data) == 0 && s.Path == ""
}

type Job struct {
	Kernel Kernel
	SigmaX float64
	SigmaY float64
	Format Format
	Mode   ReadMode
}

// AxisKernels returns the horizontal and vertical 1-D weights of the job.
func (j Job) AxisKernels() ([]float64, []float64) {
	sigmaY := j.SigmaY
	if sigmaY <= 0 {
		sigmaY = j.SigmaX
	}
	return GaussianKernel(j.Kernel.Width, j.SigmaX), GaussianKernel(j.Kernel.Height, sigmaY)
}

// Fingerprint identifies the job parameters, e.g. in cache keys.
func (j Job) Fingerprint() string {
	return fmt.Sprintf("%s:%g:%g:%s:%s", j.Kernel, j.SigmaX, j.SigmaY, j.Format, j.Mode)
}

// Validate checks the job against engine capabilities. maxKernel <= 0 disables the size cap.
func (j Job) Validate(e Engine, maxKernel int) error {
	if err := j.Kernel.Validate(maxKernel); err != nil {
		return err
	}
	if err := ValidateSigma("sigma_x", j.SigmaX); err != nil {
		return err
	}
	if err := ValidateSigma("sigma_y", j.SigmaY); err != nil {
		return err
	}
	if j.Format.IsZero() || !e.Supports(j.Format) {
		return apperrors.New(apperrors.KindParams, "format",
			fmt.Sprintf("format %q is not supported by the %s engine", j.Format, e.Name()))
	}
	if c, ok := e.(JobChecker); ok {
		return c.CheckJob(j)
	}
	return nil
}

type Result struct {
	Body     []byte
	Width    int
	Height   int
	Channels int
}

var (
	ErrEmptySource = errors.New("empty image source")
	ErrEmptyImage  = errors.New("image has no pixels")
)

func DecodeError(err error) error {
	return apperrors.Wrap(apperrors.KindInput, "decode", "failed to decode the image", err)
}

func BlurError(err error) error {
	return apperrors.Wrap(apperrors.KindInternal, "blur", "failed to blur the image", err)
}

func EncodeError(f Format, err error) error {
	return apperrors.Wrap(apperrors.KindInternal, "encode", fmt.Sprintf("failed to encode the image as %s", f), err)
}
