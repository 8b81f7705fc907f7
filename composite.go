package backdrop

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Resampler selects the scaling algorithm used when a background is fitted
// to the foreground size.
type Resampler int

const (
	// ResampleNearest picks the source pixel under the centre of each
	// destination pixel, without any smoothing.
	ResampleNearest Resampler = iota
	ResampleBilinear
	ResampleCatmullRom
)

var resamplerNames = map[Resampler]string{
	ResampleNearest:    "nearest",
	ResampleBilinear:   "bilinear",
	ResampleCatmullRom: "catmullrom",
}

func (r Resampler) String() string {
	if name, ok := resamplerNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Resampler(%d)", int(r))
}

// ParseResampler returns the resampler matching name, ignoring case.
// An empty name selects ResampleNearest.
func ParseResampler(name string) (Resampler, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ResampleNearest, nil
	}
	for r, n := range resamplerNames {
		if n == name {
			return r, nil
		}
	}
	return ResampleNearest, fmt.Errorf("%w: %q", ErrUnknownResampler, name)
}

func (r Resampler) scaler() (draw.Scaler, error) {
	switch r {
	case ResampleBilinear:
		return draw.ApproxBiLinear, nil
	case ResampleCatmullRom:
		return draw.CatmullRom, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownResampler, r)
}

// Resize scales img to width x height using nearest neighbour sampling.
// Every destination pixel is an exact copy of a source pixel.
func Resize(img *Buffer, width, height int) (*Buffer, error) {
	return ResizeWith(img, width, height, ResampleNearest)
}

// ResizeWith scales img to width x height with the given resampler.
func ResizeWith(img *Buffer, width, height int, r Resampler) (*Buffer, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	var (
		scaler draw.Scaler
		err    error
	)
	if r != ResampleNearest {
		if scaler, err = r.scaler(); err != nil {
			return nil, err
		}
	}
	dst, err := New(width, height)
	if err != nil {
		return nil, err
	}
	if width == img.Width() && height == img.Height() {
		return img.Clone(), nil
	}
	if r == ResampleNearest {
		nearest(dst, img)
		return dst, nil
	}
	scaler.Scale(dst.nrgba, dst.nrgba.Bounds(), img.nrgba, img.nrgba.Bounds(), draw.Src, nil)

	return dst, nil
}

// nearest copies into dst the source pixel lying under the centre of each
// destination pixel.
func nearest(dst, src *Buffer) {
	sw, sh := src.Width(), src.Height()
	dw, dh := dst.Width(), dst.Height()
	for y := 0; y < dh; y++ {
		sy := (2*y + 1) * sh / (2 * dh)
		di := dst.nrgba.PixOffset(0, y)
		for x := 0; x < dw; x++ {
			sx := (2*x + 1) * sw / (2 * dw)
			si := src.nrgba.PixOffset(sx, sy)
			copy(dst.nrgba.Pix[di:di+4], src.nrgba.Pix[si:si+4])
			di += 4
		}
	}
}

// Composite paints bg, scaled to the size of fg, and then fg on top of it.
// Where the foreground is transparent the background shows through, partial
// alpha is blended linearly.
func Composite(fg, bg *Buffer) (*Buffer, error) {
	return compositeWith(fg, bg, ResampleNearest)
}

func compositeWith(fg, bg *Buffer, r Resampler) (*Buffer, error) {
	if fg == nil || bg == nil {
		return nil, ErrNoImage
	}
	dst, err := ResizeWith(bg, fg.Width(), fg.Height(), r)
	if err != nil {
		return nil, fmt.Errorf("resize background: %w", err)
	}
	if !dst.Bounds().Eq(fg.Bounds()) {
		return nil, fmt.Errorf("%w: foreground %v, background %v", ErrDimensionMismatch, fg.Bounds(), dst.Bounds())
	}

	src, out := fg.nrgba.Pix, dst.nrgba.Pix
	for i := 0; i < len(out); i += 4 {
		fa := src[i+3]
		switch fa {
		case 0xff:
			copy(out[i:i+4], src[i:i+4])
		case 0:
		default:
			out[i+0] = blend(src[i+0], out[i+0], fa)
			out[i+1] = blend(src[i+1], out[i+1], fa)
			out[i+2] = blend(src[i+2], out[i+2], fa)
			out[i+3] = over(fa, out[i+3])
		}
	}
	return dst, nil
}

// Fill returns a buffer of the given size painted with a single colour.
func Fill(width, height int, c color.Color) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	ctx := gg.NewContext(width, height)
	ctx.SetColor(c)
	ctx.Clear()

	return FromImage(ctx.Image())
}

// CompositeColor paints fg over a solid background colour.
func CompositeColor(fg *Buffer, c color.Color) (*Buffer, error) {
	if fg == nil {
		return nil, ErrNoImage
	}
	bg, err := Fill(fg.Width(), fg.Height(), c)
	if err != nil {
		return nil, err
	}
	return Composite(fg, bg)
}
