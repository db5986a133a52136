package texture

import (
	"image"
	"image/color"
)

// Star temperature thresholds in Kelvin, both exclusive.
const (
	coolStarMaxK = 4000.0
	hotStarMinK  = 7500.0
)

// Tint is a constant-color layer blended over the whole raster.
type Tint struct {
	Name   string
	Color  color.RGBA
	Factor float64
}

var (
	// WarmTint approximates light from a red dwarf.
	WarmTint = Tint{Name: "warm", Color: color.RGBA{100, 60, 30, 255}, Factor: 0.25}
	// CoolTint approximates light from a hot blue star.
	CoolTint = Tint{Name: "cool", Color: color.RGBA{180, 200, 255, 255}, Factor: 0.2}
)

// TintFor returns the tint for a host star, or false for Sun-like stars.
func TintFor(starTempK float64) (Tint, bool) {
	switch {
	case starTempK < coolStarMaxK:
		return WarmTint, true
	case starTempK > hotStarMinK:
		return CoolTint, true
	}
	return Tint{}, false
}

// Blend returns c moved toward the tint color: c*(1-f) + tint*f, rounded.
func (t Tint) Blend(c color.RGBA) color.RGBA {
	f := t.Factor
	return color.RGBA{
		R: roundByte(float64(c.R)*(1-f) + float64(t.Color.R)*f),
		G: roundByte(float64(c.G)*(1-f) + float64(t.Color.G)*f),
		B: roundByte(float64(c.B)*(1-f) + float64(t.Color.B)*f),
		A: c.A,
	}
}

// Grade applies the host star's tint to img in place and reports whether
// any tint was applied.
func Grade(img *image.RGBA, starTempK float64, workers int) (Tint, bool) {
	t, ok := TintFor(starTempK)
	if !ok {
		return Tint{}, false
	}

	// Every pixel maps through the same table, one per channel.
	var lut [3][256]uint8
	for v := range 256 {
		c := t.Blend(color.RGBA{uint8(v), uint8(v), uint8(v), 255})
		lut[0][v], lut[1][v], lut[2][v] = c.R, c.G, c.B
	}

	b := img.Bounds()
	forRows(b.Dy(), workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			off := img.PixOffset(b.Min.X, b.Min.Y+y)
			row := img.Pix[off : off+b.Dx()*4]
			for i := 0; i < len(row); i += 4 {
				row[i] = lut[0][row[i]]
				row[i+1] = lut[1][row[i+1]]
				row[i+2] = lut[2][row[i+2]]
			}
		}
	})
	return t, true
}
