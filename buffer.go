package backdrop

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
)

// Buffer is an in-memory, non-premultiplied RGBA raster.
// Pixels are stored row-major, four bytes per pixel, so the pixel at (x, y)
// lives at offset 4*(y*width+x). The zero value is not usable, create buffers
// with New or FromImage.
type Buffer struct {
	nrgba *image.NRGBA
}

var _ image.Image = (*Buffer)(nil)

// New creates a fully transparent buffer of the given size.
func New(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Buffer{nrgba: image.NewNRGBA(image.Rect(0, 0, width, height))}, nil
}

// FromImage copies any image type into a new Buffer with min-point at (0, 0).
func FromImage(img image.Image) (*Buffer, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	srcBounds := img.Bounds()
	dst, err := New(srcBounds.Dx(), srcBounds.Dy())
	if err != nil {
		return nil, err
	}
	srcMinX := srcBounds.Min.X
	srcMinY := srcBounds.Min.Y
	dstW, dstH := srcBounds.Dx(), srcBounds.Dy()
	pix := dst.nrgba.Pix

	switch src := img.(type) {
	case *Buffer:
		copy(pix, src.nrgba.Pix)
	case *image.NRGBA:
		rowSize := dstW * 4
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.nrgba.PixOffset(0, dstY)
			si := src.PixOffset(srcMinX, srcMinY+dstY)
			copy(pix[di:di+rowSize], src.Pix[si:si+rowSize])
		}
	case *image.YCbCr:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.nrgba.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				srcX := srcMinX + dstX
				srcY := srcMinY + dstY
				siy := src.YOffset(srcX, srcY)
				sic := src.COffset(srcX, srcY)
				r, g, b := color.YCbCrToRGB(src.Y[siy], src.Cb[sic], src.Cr[sic])
				pix[di+0] = r
				pix[di+1] = g
				pix[di+2] = b
				pix[di+3] = 0xff
				di += 4
			}
		}
	case *image.Gray:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.nrgba.PixOffset(0, dstY)
			si := src.PixOffset(srcMinX, srcMinY+dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				c := src.Pix[si]
				pix[di+0] = c
				pix[di+1] = c
				pix[di+2] = c
				pix[di+3] = 0xff
				di += 4
				si++
			}
		}
	default:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.nrgba.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				c := color.NRGBAModel.Convert(img.At(srcMinX+dstX, srcMinY+dstY)).(color.NRGBA)
				pix[di+0] = c.R
				pix[di+1] = c.G
				pix[di+2] = c.B
				pix[di+3] = c.A
				di += 4
			}
		}
	}

	return dst, nil
}

// Width returns the width of the buffer in pixels.
func (b *Buffer) Width() int { return b.nrgba.Rect.Dx() }

// Height returns the height of the buffer in pixels.
func (b *Buffer) Height() int { return b.nrgba.Rect.Dy() }

func (b *Buffer) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width() && y < b.Height()
}

// Pixel returns the colour stored at (x, y).
func (b *Buffer) Pixel(x, y int) (color.NRGBA, error) {
	if !b.inside(x, y) {
		return color.NRGBA{}, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, x, y, b.Width(), b.Height())
	}
	return b.nrgba.NRGBAAt(x, y), nil
}

// SetPixel stores c at (x, y). The channels are written as given, any
// clamping is up to the caller.
func (b *Buffer) SetPixel(x, y int, c color.NRGBA) error {
	if !b.inside(x, y) {
		return fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, x, y, b.Width(), b.Height())
	}
	b.nrgba.SetNRGBA(x, y, c)
	return nil
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.nrgba.Pix))
	copy(pix, b.nrgba.Pix)
	return &Buffer{nrgba: &image.NRGBA{
		Pix:    pix,
		Stride: b.nrgba.Stride,
		Rect:   b.nrgba.Rect,
	}}
}

// Equal reports whether both buffers have the same size and identical pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.nrgba.Rect.Eq(o.nrgba.Rect) && bytes.Equal(b.nrgba.Pix, o.nrgba.Pix)
}

// Image returns a copy of the pixels as *image.NRGBA.
func (b *Buffer) Image() *image.NRGBA {
	return b.Clone().nrgba
}

// ColorModel implements the image.Image interface.
func (b *Buffer) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements the image.Image interface.
func (b *Buffer) Bounds() image.Rectangle { return b.nrgba.Rect }

// At implements the image.Image interface.
func (b *Buffer) At(x, y int) color.Color { return b.nrgba.At(x, y) }
