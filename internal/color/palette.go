// Package color assigns stable colors to directors so a director keeps the same hue in every panel.
package color

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Muted is used for bars that are not part of an active director selection.
const Muted = "#C9CED6"

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex returns the color as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ForDirector returns the deterministic color for a director name.
func ForDirector(name string) RGB {
	hue := float64(xxhash.Sum64String(name) % 360)
	// S=0.55, L=0.5 keeps adjacent hues distinguishable on a white background.
	r, g, b := hslToRGB(hue, 0.55, 0.5)
	return RGB{R: r, G: g, B: b}
}

// HexForDirector is ForDirector(name).Hex().
func HexForDirector(name string) string {
	return ForDirector(name).Hex()
}

// hslToRGB converts h (0-360), s and l (0-1) to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360.0

	var r1, g1, b1 float64
	if s == 0 {
		r1, g1, b1 = l, l, l
	} else {
		q := l + s - l*s
		if l < 0.5 {
			q = l * (1 + s)
		}
		p := 2*l - q

		r1 = hueToRGB(p, q, h+1.0/3.0)
		g1 = hueToRGB(p, q, h)
		b1 = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(r1*255 + 0.5), uint8(g1*255 + 0.5), uint8(b1*255 + 0.5)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
