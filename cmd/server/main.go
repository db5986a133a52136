package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OCharnyshevich/planet-texture-server/internal/server"
	"github.com/OCharnyshevich/planet-texture-server/internal/server/config"
	"github.com/OCharnyshevich/planet-texture-server/internal/server/refimage"
	"github.com/OCharnyshevich/planet-texture-server/internal/server/storage"
	"github.com/OCharnyshevich/planet-texture-server/pkg/texture"
)

func main() {
	cfg := config.DefaultConfig()

	flag.IntVar(&cfg.Port, "port", cfg.Port, "server port")
	flag.IntVar(&cfg.Size, "size", cfg.Size, "texture edge length in pixels")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "render workers per request (0 = GOMAXPROCS)")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for config.json and the texture cache")
	flag.DurationVar((*time.Duration)(&cfg.FetchTimeout), "fetch-timeout", cfg.FetchTimeout.Std(), "reference texture download timeout")
	flag.StringVar(&cfg.AllowOrigin, "allow-origin", cfg.AllowOrigin, "Access-Control-Allow-Origin value")
	flag.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "renders per second (0 = unlimited)")
	flag.IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "render burst size")
	flag.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "maximum request body size")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	refFlags := make(map[string]*string)
	for _, b := range texture.Biomes() {
		refFlags[b.String()] = flag.String("ref-"+b.String(), "", "reference texture source for "+b.String()+" worlds")
	}
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	for biome, src := range refFlags {
		if explicit["ref-"+biome] {
			cfg.References[biome] = *src
		}
	}

	log := newLogger(cfg.LogLevel)

	store, err := storage.New(cfg.DataDir, log)
	if err != nil {
		log.Error("open storage", "error", err)
		os.Exit(1)
	}

	fromFile := config.DefaultConfig()
	if err := store.LoadConfig(fromFile); err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	config.Merge(cfg, fromFile, explicit)
	log = newLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	refs := refimage.New(refimage.Options{
		Size:    cfg.Size,
		Sources: cfg.References,
		Timeout: cfg.FetchTimeout.Std(),
	}, store, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Warm the reference cache so the first request per biome is not slow.
	go func() {
		for _, b := range texture.Biomes() {
			refs.Texture(ctx, b)
		}
	}()

	srv := server.New(cfg, refs, log)
	if err := srv.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
