//go:build with_vips

package vips

import (
	"blurrer/converter"
	apperrors "blurrer/shared/errors"
	"context"
	"github.com/h2non/bimg"
	"os"
)

type CustomImage struct {
	img *bimg.Image

	t Encoder
}

func NewCustomImage(t Encoder) *CustomImage {
	return &CustomImage{t: t}
}

func (ci *CustomImage) Load(src converter.Source) error {
	buf := src.Data
	if len(buf) == 0 {
		if src.Path == "" {
			return converter.DecodeError(converter.ErrEmptySource)
		}

		var err error
		if buf, err = os.ReadFile(src.Path); err != nil {
			return apperrors.Wrap(apperrors.KindInternal, "read", "failed to read the persisted upload", err)
		}
	}

	ci.img = bimg.NewImage(buf)

	return nil
}

func (ci *CustomImage) Size() (bimg.ImageSize, error) {
	size, err := ci.img.Size()
	if err == nil && (size.Width == 0 || size.Height == 0) {
		err = converter.ErrEmptyImage
	}
	return size, err
}

func (ci *CustomImage) Channels() int {
	meta, err := ci.img.Metadata()
	if err != nil || meta.Channels == 0 {
		return 3
	}
	return meta.Channels
}

func (ci *CustomImage) Encode(ctx context.Context, opts bimg.Options) ([]byte, error) {
	return ci.t.Encode(ctx, ci.img, opts)
}
