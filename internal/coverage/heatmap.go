package coverage

import (
	"fmt"
	"math"
)

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// CSS renders the color as rgb(r, g, b).
func (c RGB) CSS() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Hex renders the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NeutralGray colors cells with no threshold.
var NeutralGray = RGB{R: 200, G: 200, B: 200}

// HeatmapColor colors a hit-count cell by count/threshold.
//
// Up to the threshold the green channel rises from 80 to 255 with red held
// at 255 (amber to yellow). Past it green is pinned at 200 and red falls by
// 255 per unit of ratio above 1, reaching 0 at twice the threshold. Blue is
// always 80. A threshold of zero or less yields NeutralGray.
func HeatmapColor(count, threshold int) RGB {
	if threshold <= 0 {
		return NeutralGray
	}
	ratio := math.Max(0, float64(count)/float64(threshold))
	if ratio <= 1 {
		return RGB{R: 255, G: uint8(math.Round(80 + 175*ratio)), B: 80}
	}
	red := math.Max(0, math.Round(255*(2-ratio)))
	return RGB{R: uint8(red), G: 200, B: 80}
}
