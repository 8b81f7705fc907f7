package backdrop

import (
	"fmt"
	"strings"
)

// FilterKind selects the colour transform applied to the working image.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterNegative
	FilterSepia
)

var filterNames = map[FilterKind]string{
	FilterNone:     "none",
	FilterNegative: "negative",
	FilterSepia:    "sepia",
}

func (k FilterKind) String() string {
	if name, ok := filterNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FilterKind(%d)", int(k))
}

// ParseFilterKind returns the filter kind matching name, ignoring case.
func ParseFilterKind(name string) (FilterKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return FilterNone, nil
	}
	for k, n := range filterNames {
		if n == name {
			return k, nil
		}
	}
	return FilterNone, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
}

// Filter is a pure per-pixel transform. Apply never modifies src.
type Filter interface {
	Apply(src *Buffer) (*Buffer, error)
}

// FilterFunc adapts an ordinary function to the Filter interface.
type FilterFunc func(src *Buffer) *Buffer

// Apply calls f(src).
func (f FilterFunc) Apply(src *Buffer) (*Buffer, error) {
	if src == nil {
		return nil, ErrNoImage
	}
	return f(src), nil
}

// FilterFor returns the filter implementing kind.
func FilterFor(kind FilterKind) (Filter, error) {
	switch kind {
	case FilterNone:
		return FilterFunc((*Buffer).Clone), nil
	case FilterNegative:
		return FilterFunc(Negative), nil
	case FilterSepia:
		return FilterFunc(Sepia), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownFilter, kind)
}

// Negative inverts the red, green and blue channels. Alpha is kept as is.
func Negative(src *Buffer) *Buffer {
	dst := src.Clone()
	pix := dst.nrgba.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = 255 - pix[i+0]
		pix[i+1] = 255 - pix[i+1]
		pix[i+2] = 255 - pix[i+2]
	}
	return dst
}

// Sepia tones the image using the classic sepia colour matrix.
// Results above 255 are clamped and fractions truncated. Alpha is kept as is.
func Sepia(src *Buffer) *Buffer {
	dst := src.Clone()
	pix := dst.nrgba.Pix
	for i := 0; i < len(pix); i += 4 {
		r, g, b := float64(pix[i+0]), float64(pix[i+1]), float64(pix[i+2])

		pix[i+0] = channel(0.393*r + 0.769*g + 0.189*b)
		pix[i+1] = channel(0.349*r + 0.686*g + 0.168*b)
		pix[i+2] = channel(0.272*r + 0.534*g + 0.131*b)
	}
	return dst
}
