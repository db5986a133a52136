package texture

import (
	"image"
	"image/color"
	"math"
)

// Fixed surface colors.
var (
	DeepWater    = color.RGBA{5, 25, 80, 255}
	ShallowWater = color.RGBA{25, 90, 150, 255}
	Mountain     = color.RGBA{140, 140, 140, 255}
	IceColor     = color.RGBA{230, 235, 240, 255}
)

// Height bands above the water level.
const (
	ShoreWidth   = 0.05
	MountainLine = 0.85
)

// Composite paints the height field into an RGBA raster.
//
// Ice worlds ignore the bands and shade IceColor by 0.8+0.2h. Other biomes
// use deep water, shallow water, the reference texture and bare rock from
// low to high. ref is only read and is sampled relative to its bounds.
func Composite(hf *HeightField, biome Biome, waterLevel float64, ref image.Image, workers int) *image.RGBA {
	size := hf.Size
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	var origin image.Point
	if ref != nil {
		origin = ref.Bounds().Min
	}

	forRows(size, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < size; x++ {
				h := hf.At(x, y)
				var c color.RGBA
				switch {
				case biome == Ice:
					c = shadeIce(h)
				case h < waterLevel:
					c = DeepWater
				case h < waterLevel+ShoreWidth:
					c = ShallowWater
				case h < MountainLine:
					c = sampleRGB(ref, origin.X+x, origin.Y+y)
				default:
					c = Mountain
				}
				img.SetRGBA(x, y, c)
			}
		}
	})
	return img
}

// shadeIce scales IceColor by 0.8+0.2h, truncating toward zero.
func shadeIce(h float64) color.RGBA {
	f := 0.8 + 0.2*h
	return color.RGBA{
		R: clampByte(math.Trunc(float64(IceColor.R) * f)),
		G: clampByte(math.Trunc(float64(IceColor.G) * f)),
		B: clampByte(math.Trunc(float64(IceColor.B) * f)),
		A: 255,
	}
}

func sampleRGB(ref image.Image, x, y int) color.RGBA {
	if ref == nil {
		return color.RGBA{A: 255}
	}
	if rgba, ok := ref.(*image.RGBA); ok {
		c := rgba.RGBAAt(x, y)
		c.A = 255
		return c
	}
	r, g, b, _ := ref.At(x, y).RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 255}
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// roundByte rounds half away from zero and clamps to [0, 255].
func roundByte(v float64) uint8 {
	return clampByte(math.Round(v))
}
