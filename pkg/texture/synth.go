// Package texture paints procedural planet surfaces from a few physical
// parameters and a reference image.
//
// The pipeline is classify, height field, composite, stellar tint,
// smoothing and contrast, then PNG encoding. Every stage is a pure function
// of its inputs; nothing is shared between calls except the caller's
// reference image, which is never written.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// DefaultSize is the edge length of generated textures in pixels.
const DefaultSize = 512

// Synthesizer renders textures of a fixed size.
type Synthesizer struct {
	size    int
	workers int
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithSize sets the output edge length. Non-positive values are ignored.
func WithSize(size int) Option {
	return func(s *Synthesizer) {
		if size > 0 {
			s.size = size
		}
	}
}

// WithWorkers bounds per-pass parallelism. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Synthesizer) {
		if n >= 0 {
			s.workers = n
		}
	}
}

// New creates a Synthesizer.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{size: DefaultSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size returns the output edge length.
func (s *Synthesizer) Size() int { return s.size }

// Result is a rendered texture plus what was decided along the way.
type Result struct {
	Image      *image.RGBA
	Surface    *image.RGBA // composited raster before tint and post-processing
	Heights    *HeightField
	Biome      Biome
	WaterLevel float64
	BaseScale  float64
	Seed       int64
	Tint       Tint
	Tinted     bool
}

// Render runs the full pipeline. ref should be Size x Size; it is sampled,
// never modified, and may be shared by concurrent calls.
func (s *Synthesizer) Render(p Parameters, ref image.Image) *Result {
	biome, water := Classify(p.EqTempK)
	r := &Result{
		Biome:      biome,
		WaterLevel: water,
		BaseScale:  BaseScale(p.RadiusRE),
		Seed:       p.Seed(),
	}

	r.Heights = GenerateHeightField(s.size, r.BaseScale, r.Seed, s.workers)
	r.Surface = Composite(r.Heights, biome, water, ref, s.workers)

	graded := cloneRGBA(r.Surface)
	r.Tint, r.Tinted = Grade(graded, p.StarTempK, s.workers)
	r.Image = PostProcess(graded, s.workers)
	return r
}

// Synthesize renders and PNG-encodes a texture.
func (s *Synthesizer) Synthesize(p Parameters, ref image.Image) ([]byte, error) {
	return Encode(s.Render(p, ref).Image)
}

// Synthesize renders with a default Synthesizer.
func Synthesize(p Parameters, ref image.Image) ([]byte, error) {
	return New().Synthesize(p, ref)
}

// Encode writes img as PNG.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// FlatTexture returns a size x size raster filled with c.
func FlatTexture(size int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
