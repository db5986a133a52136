package texture

import (
	"math"
	"math/rand/v2"
)

// Radius clamp applied before deriving the noise scale.
const (
	minRadiusRE = 0.8
	maxRadiusRE = 1.5
	scaleBase   = 80.0
	jitterAmp   = 0.1
)

// HeightField is a square, row-major grid of terrain heights.
// After GenerateHeightField every value is in [0, 1].
type HeightField struct {
	Size   int
	Values []float64
}

// NewHeightField allocates a zeroed size x size field.
func NewHeightField(size int) *HeightField {
	return &HeightField{Size: size, Values: make([]float64, size*size)}
}

// At returns the height at column x, row y.
func (hf *HeightField) At(x, y int) float64 {
	return hf.Values[y*hf.Size+x]
}

// MinMax returns the smallest and largest value in the field.
func (hf *HeightField) MinMax() (lo, hi float64) {
	if len(hf.Values) == 0 {
		return 0, 0
	}
	lo, hi = hf.Values[0], hf.Values[0]
	for _, v := range hf.Values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Normalize rescales the field in place so that min maps to 0 and max to 1.
// A flat field becomes all zeros.
func (hf *HeightField) Normalize(workers int) {
	lo, hi := hf.MinMax()
	span := hi - lo
	forRows(hf.Size, workers, func(y0, y1 int) {
		row := hf.Values[y0*hf.Size : y1*hf.Size]
		for i, v := range row {
			if span == 0 {
				row[i] = 0
				continue
			}
			row[i] = (v - lo) / span
		}
	})
}

// Octaves evaluates three octaves of trigonometric noise at (x, y) with
// wavelength s. Output is roughly in [-1.75, 1.75].
func Octaves(x, y, s float64) float64 {
	return math.Sin(x/s)*math.Cos(y/s) +
		0.5*math.Sin(2*x/s)*math.Cos(2*y/s) +
		0.25*math.Sin(4*x/s)*math.Cos(4*y/s)
}

// BaseScale derives the continent wavelength from the planet radius.
// Larger planets get smoother, broader features up to the clamp.
func BaseScale(radiusRE float64) float64 {
	r := radiusRE
	if math.IsNaN(r) {
		r = DefaultRadiusRE
	}
	r = math.Max(minRadiusRE, math.Min(r, maxRadiusRE))
	return scaleBase / r
}

// GenerateHeightField fills a size x size field and normalizes it.
//
// The raw pass sums Octaves at baseScale, baseScale/2 and baseScale/4 with
// weights 1, 0.5 and 0.25 plus uniform jitter in [-0.1, 0.1). Jitter for
// row y comes from its own PCG stream keyed by (seed, y), so the field does
// not depend on the worker count.
func GenerateHeightField(size int, baseScale float64, seed int64, workers int) *HeightField {
	hf := NewHeightField(size)

	// Pass 1: raw heights.
	forRows(size, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			rng := rand.New(rand.NewPCG(uint64(seed), uint64(y)))
			row := hf.Values[y*size : (y+1)*size]
			fy := float64(y)
			for x := range row {
				fx := float64(x)
				row[x] = Octaves(fx, fy, baseScale) +
					Octaves(fx, fy, baseScale/2)*0.5 +
					Octaves(fx, fy, baseScale/4)*0.25 +
					(rng.Float64()*2-1)*jitterAmp
			}
		}
	})

	// Pass 2 needs the global extent, so it starts only after pass 1 returns.
	hf.Normalize(workers)
	return hf
}
