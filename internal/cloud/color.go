package cloud

import (
	"fmt"
	"math"
)

// HSLA is a colour with hue in degrees and saturation, lightness and alpha
// in [0, 1].
type HSLA struct {
	H, S, L, A float64
}

// RGB is an opaque 8-bit colour.
type RGB struct {
	R, G, B uint8
}

// Hex formats the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RGB converts the colour ignoring alpha, returning channels in [0, 1].
func (c HSLA) RGB() (r, g, b float64) {
	h := math.Mod(c.H, 360)
	if h < 0 {
		h += 360
	}
	chroma := (1 - math.Abs(2*c.L-1)) * c.S
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := c.L - chroma/2

	switch {
	case h < 60:
		r, g, b = chroma, x, 0
	case h < 120:
		r, g, b = x, chroma, 0
	case h < 180:
		r, g, b = 0, chroma, x
	case h < 240:
		r, g, b = 0, x, chroma
	case h < 300:
		r, g, b = x, 0, chroma
	default:
		r, g, b = chroma, 0, x
	}
	return r + m, g + m, b + m
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
