package backdrop

import (
	"golang.org/x/exp/constraints"
)

// clamp limits v to the closed interval [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// channel converts an arithmetic result back into an 8 bit channel.
// The fractional part is truncated, not rounded.
func channel(v float64) uint8 {
	return uint8(clamp(v, 0, 255))
}

// blend mixes the fg and bg channel values weighted by the foreground alpha.
func blend(fg, bg, alpha uint8) uint8 {
	a := uint32(alpha)
	return uint8((uint32(fg)*a + uint32(bg)*(255-a)) / 255)
}

// over computes the source-over coverage of two alpha values.
func over(fa, ba uint8) uint8 {
	return fa + uint8(uint32(ba)*(255-uint32(fa))/255)
}
