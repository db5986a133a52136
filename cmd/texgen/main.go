package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/OCharnyshevich/planet-texture-server/internal/server/refimage"
	"github.com/OCharnyshevich/planet-texture-server/internal/server/storage"
	"github.com/OCharnyshevich/planet-texture-server/pkg/texture"
)

func main() {
	var (
		eqt       = flag.Float64("eqt", texture.DefaultEqTempK, "planet equilibrium temperature (K)")
		rade      = flag.Float64("rade", texture.DefaultRadiusRE, "planet radius (Earth radii)")
		teff      = flag.Float64("teff", texture.DefaultStarTempK, "host star effective temperature (K)")
		paramFile = flag.String("params", "", "JSON file with planet fields; overrides -eqt/-rade/-teff")
		refSrc    = flag.String("reference", "", "reference texture source (path or URL); default is a flat biome color")
		dataDir   = flag.String("data-dir", "", "texture cache directory (empty = no cache)")
		size      = flag.Int("size", texture.DefaultSize, "texture edge length in pixels")
		workers   = flag.Int("workers", 0, "render workers (0 = GOMAXPROCS)")
		timeout   = flag.Duration("fetch-timeout", 30*time.Second, "reference download timeout")
		out       = flag.String("o", "planet.png", "output PNG path")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	raw := map[string]any{
		texture.KeyEqTemp:   *eqt,
		texture.KeyRadius:   *rade,
		texture.KeyStarTemp: *teff,
	}
	if *paramFile != "" {
		var err error
		if raw, err = readParams(*paramFile); err != nil {
			log.Error("read params", "error", err)
			os.Exit(1)
		}
	}

	params, err := texture.ParseParameters(raw)
	if err != nil {
		log.Error("parse params", "error", err)
		os.Exit(1)
	}
	biome, _ := texture.Classify(params.EqTempK)

	var store *storage.Storage
	if *dataDir != "" {
		if store, err = storage.New(*dataDir, log); err != nil {
			log.Error("open storage", "error", err)
			os.Exit(1)
		}
	}

	sources := map[string]string{}
	if *refSrc != "" {
		sources[biome.String()] = *refSrc
	}
	refs := refimage.New(refimage.Options{Size: *size, Sources: sources, Timeout: *timeout}, store, log)

	var ref image.Image = refs.Texture(context.Background(), biome)
	synth := texture.New(texture.WithSize(*size), texture.WithWorkers(*workers))

	start := time.Now()
	data, err := synth.Synthesize(params, ref)
	if err != nil {
		log.Error("synthesize", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Error("write output", "error", err)
		os.Exit(1)
	}

	log.Info("wrote texture",
		"path", *out,
		"biome", biome,
		"eqTempC", fmt.Sprintf("%.1f", params.EqTempC()),
		"seed", params.Seed(),
		"bytes", len(data),
		"elapsed", time.Since(start),
	)
}

func readParams(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return raw, nil
}
