package backdrop

import (
	"context"
	"image/color"
)

// Remover extracts the foreground of an image. Pixels which belong to the
// removed background must come back with zero alpha.
type Remover interface {
	Remove(ctx context.Context, src *Buffer) (*Buffer, error)
}

// RemoverFunc adapts an ordinary function to the Remover interface.
type RemoverFunc func(ctx context.Context, src *Buffer) (*Buffer, error)

// Remove calls f(ctx, src).
func (f RemoverFunc) Remove(ctx context.Context, src *Buffer) (*Buffer, error) {
	return f(ctx, src)
}

// ColorKey is a Remover which makes every pixel close to Key transparent.
// A pixel matches when each of its red, green and blue channels is within
// Tolerance of the key colour.
type ColorKey struct {
	Key       color.NRGBA
	Tolerance uint8
}

// Remove implements Remover.
func (k ColorKey) Remove(ctx context.Context, src *Buffer) (*Buffer, error) {
	if src == nil {
		return nil, ErrNoImage
	}
	dst := src.Clone()
	stride := dst.nrgba.Stride
	pix := dst.nrgba.Pix

	for y := 0; y < dst.Height(); y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := pix[y*stride : y*stride+stride]
		for i := 0; i < len(row); i += 4 {
			if k.matches(row[i+0], row[i+1], row[i+2]) {
				row[i+3] = 0
			}
		}
	}
	return dst, nil
}

func (k ColorKey) matches(r, g, b uint8) bool {
	return diff(r, k.Key.R) <= k.Tolerance &&
		diff(g, k.Key.G) <= k.Tolerance &&
		diff(b, k.Key.B) <= k.Tolerance
}

func diff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
