// Package refimage resolves the reference texture painted onto land for
// each biome. Textures are fetched once from a configured source, scaled to
// the synthesis size and cached in memory and on disk. Any failure yields a
// flat fallback color so rendering never depends on the network.
package refimage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/OCharnyshevich/planet-texture-server/internal/server/storage"
	"github.com/OCharnyshevich/planet-texture-server/pkg/texture"
)

// ErrNoSource means no reference source is configured for a biome.
var ErrNoSource = errors.New("no reference source configured")

// Fallback colors used when a biome has no usable reference.
var fallbackColors = map[texture.Biome]color.RGBA{
	texture.Ice:       {200, 200, 220, 255},
	texture.Temperate: {80, 120, 80, 255},
	texture.Desert:    {180, 140, 100, 255},
}

// Options configures a Provider.
type Options struct {
	Size       int
	Sources    map[string]string // biome key -> go-getter source
	Timeout    time.Duration     // per fetch
	RetryAfter time.Duration     // how long a failed biome serves its fallback before refetching
}

type failure struct {
	at  time.Time
	img *image.RGBA
}

// Provider hands out reference textures. Returned images are shared
// between callers and must not be modified.
type Provider struct {
	opts    Options
	store   *storage.Storage
	log     *slog.Logger
	fetcher *Fetcher
	now     func() time.Time

	mu       sync.RWMutex
	cache    map[texture.Biome]*image.RGBA
	failures map[texture.Biome]failure
	group    singleflight.Group
}

// New creates a Provider. store may be nil to disable the disk cache.
func New(opts Options, store *storage.Storage, log *slog.Logger) *Provider {
	if opts.Size <= 0 {
		opts.Size = texture.DefaultSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 5 * time.Minute
	}
	return &Provider{
		opts:     opts,
		store:    store,
		log:      log,
		fetcher:  NewFetcher(opts.Timeout),
		now:      time.Now,
		cache:    make(map[texture.Biome]*image.RGBA),
		failures: make(map[texture.Biome]failure),
	}
}

// Fallback returns the flat texture for biome.
func Fallback(biome texture.Biome, size int) *image.RGBA {
	c, ok := fallbackColors[biome]
	if !ok {
		c = color.RGBA{51, 51, 51, 255}
	}
	return texture.FlatTexture(size, c)
}

// Texture returns the reference for biome. It never fails; problems are
// logged and answered with Fallback.
//
// Concurrent callers for one biome share a single fetch that outlives any
// one request. A caller whose ctx ends first gets Fallback while the fetch
// carries on for the others.
func (p *Provider) Texture(ctx context.Context, biome texture.Biome) *image.RGBA {
	if img, ok := p.cached(biome); ok {
		return img
	}

	ch := p.group.DoChan(biome.String(), func() (any, error) {
		return p.load(context.WithoutCancel(ctx), biome), nil
	})
	select {
	case res := <-ch:
		return res.Val.(*image.RGBA)
	case <-ctx.Done():
		p.log.Debug("gave up waiting for reference texture", "biome", biome, "error", ctx.Err())
		return Fallback(biome, p.opts.Size)
	}
}

// load resolves biome and records the outcome in the cache.
func (p *Provider) load(ctx context.Context, biome texture.Biome) *image.RGBA {
	if img, ok := p.cached(biome); ok {
		return img
	}
	img, err := p.resolve(ctx, biome)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrNoSource) {
			level = slog.LevelDebug
		}
		p.log.Log(ctx, level, "using fallback reference texture", "biome", biome, "error", err)

		fb := Fallback(biome, p.opts.Size)
		p.mu.Lock()
		p.failures[biome] = failure{at: p.now(), img: fb}
		p.mu.Unlock()
		return fb
	}

	p.mu.Lock()
	p.cache[biome] = img
	delete(p.failures, biome)
	p.mu.Unlock()
	return img
}

func (p *Provider) cached(biome texture.Biome) (*image.RGBA, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if img, ok := p.cache[biome]; ok {
		return img, true
	}
	if f, ok := p.failures[biome]; ok && p.now().Sub(f.at) < p.opts.RetryAfter {
		return f.img, true
	}
	return nil, false
}

// resolve loads the biome's reference from disk or from its source.
func (p *Provider) resolve(ctx context.Context, biome texture.Biome) (*image.RGBA, error) {
	key := biome.String()
	src, ok := p.opts.Sources[key]
	if !ok || src == "" {
		return nil, fmt.Errorf("%w for %s", ErrNoSource, key)
	}

	if p.store != nil {
		img, meta, err := p.store.LoadReference(key)
		switch {
		case err != nil:
			p.log.Warn("read cached reference", "biome", key, "error", err)
		case meta != nil && meta.Source == src:
			p.log.Info("loaded reference texture from cache", "biome", key)
			return Fit(img, p.opts.Size), nil
		}
	}

	p.log.Info("fetching reference texture", "biome", key, "source", src)
	start := p.now()
	img, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	fitted := Fit(img, p.opts.Size)
	p.log.Info("fetched reference texture",
		"biome", key,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"elapsed", p.now().Sub(start),
	)

	if p.store != nil {
		meta := &storage.ReferenceMeta{
			Biome:     key,
			Source:    src,
			Width:     p.opts.Size,
			Height:    p.opts.Size,
			FetchedAt: p.now().UTC(),
		}
		if err := p.store.SaveReference(fitted, meta); err != nil {
			p.log.Warn("cache reference texture", "biome", key, "error", err)
		}
	}
	return fitted, nil
}
