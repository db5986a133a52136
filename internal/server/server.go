package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/time/rate"

	"github.com/OCharnyshevich/planet-texture-server/internal/server/config"
	"github.com/OCharnyshevich/planet-texture-server/pkg/texture"
)

// References supplies the reference texture for a biome. It must not fail;
// implementations substitute a fallback when imagery is unavailable.
type References interface {
	Texture(ctx context.Context, biome texture.Biome) *image.RGBA
}

// Server serves planet textures over HTTP.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	synth   *texture.Synthesizer
	refs    References
	limiter *rate.Limiter
}

// New creates a new Server with the given config, reference source and logger.
func New(cfg *config.Config, refs References, log *slog.Logger) *Server {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Server{
		cfg:     cfg,
		log:     log,
		synth:   texture.New(texture.WithSize(cfg.Size), texture.WithWorkers(cfg.Workers)),
		refs:    refs,
		limiter: rate.NewLimiter(limit, max(cfg.RateBurst, 1)),
	}
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate_texture", s.handleGenerate)
	mux.HandleFunc("/{$}", s.handleIndex)
	return s.withRequestID(s.withCORS(gzhttp.GzipHandler(mux)))
}

// Start begins listening for connections and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.log.Info("server started",
		"port", s.cfg.Port,
		"size", s.cfg.Size,
		"workers", s.cfg.Workers,
		"rateLimit", s.cfg.RateLimit,
		"references", len(s.cfg.References),
	)

	// Shut down when context is cancelled.
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("shutdown", "error", err)
		}
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	<-done
	s.log.Info("server shutting down")
	return nil
}
