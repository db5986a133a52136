package texture

import (
	"image"
)

// ContrastFactor is the final contrast boost.
const ContrastFactor = 1.1

// smoothKernel is a 3x3 weighted box blur with a heavy center tap.
var smoothKernel = [3][3]float64{
	{1, 1, 1},
	{1, 5, 1},
	{1, 1, 1},
}

const smoothDivisor = 13.0

// Smooth returns a blurred copy of img. Pixels outside the raster are
// taken from the nearest edge.
func Smooth(img *image.RGBA, workers int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	forRows(h, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				var acc [3]float64
				for ky := -1; ky <= 1; ky++ {
					sy := clampInt(y+ky, 0, h-1)
					for kx := -1; kx <= 1; kx++ {
						sx := clampInt(x+kx, 0, w-1)
						k := smoothKernel[ky+1][kx+1]
						off := img.PixOffset(b.Min.X+sx, b.Min.Y+sy)
						acc[0] += k * float64(img.Pix[off])
						acc[1] += k * float64(img.Pix[off+1])
						acc[2] += k * float64(img.Pix[off+2])
					}
				}
				off := out.PixOffset(x, y)
				out.Pix[off] = roundByte(acc[0] / smoothDivisor)
				out.Pix[off+1] = roundByte(acc[1] / smoothDivisor)
				out.Pix[off+2] = roundByte(acc[2] / smoothDivisor)
				out.Pix[off+3] = 255
			}
		}
	})
	return out
}

// Contrast remaps every channel as 128 + (v-128)*factor in place.
func Contrast(img *image.RGBA, factor float64, workers int) {
	var lut [256]uint8
	for v := range 256 {
		lut[v] = roundByte(128 + (float64(v)-128)*factor)
	}

	b := img.Bounds()
	forRows(b.Dy(), workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			off := img.PixOffset(b.Min.X, b.Min.Y+y)
			row := img.Pix[off : off+b.Dx()*4]
			for i := 0; i < len(row); i += 4 {
				row[i] = lut[row[i]]
				row[i+1] = lut[row[i+1]]
				row[i+2] = lut[row[i+2]]
			}
		}
	})
}

// PostProcess smooths img and boosts contrast, returning a new raster.
func PostProcess(img *image.RGBA, workers int) *image.RGBA {
	out := Smooth(img, workers)
	Contrast(out, ContrastFactor, workers)
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
