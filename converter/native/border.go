package native

import "image"

// reflect101 maps p into [0, n) mirroring around the edge pixels without
// repeating them: gfedcb|abcdefgh|gfedcba.
func reflect101(p, n int) int {
	if n == 1 {
		return 0
	}
	for p < 0 || p >= n {
		if p < 0 {
			p = -p
		} else {
			p = 2*(n-1) - p
		}
	}
	return p
}

// padReflect101 returns a copy of src, which must start at the origin, grown
// by padX columns and padY rows on each side.
func padReflect101(src *image.RGBA, padX, padY int) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w+2*padX, h+2*padY))

	cols := make([]int, w+2*padX)
	for x := range cols {
		cols[x] = reflect101(x-padX, w) * 4
	}

	for y := 0; y < h+2*padY; y++ {
		srow := src.Pix[reflect101(y-padY, h)*src.Stride:]
		drow := dst.Pix[y*dst.Stride:]
		for x, sx := range cols {
			copy(drow[x*4:x*4+4], srow[sx:sx+4])
		}
	}

	return dst
}
