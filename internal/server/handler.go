package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OCharnyshevich/planet-texture-server/pkg/texture"
)

type ctxKey struct{}

// TextureResponse is the body of a successful /generate_texture call.
type TextureResponse struct {
	Texture   string  `json:"texture"` // base64 PNG
	Biome     string  `json:"biome"`
	Seed      int64   `json:"seed"`
	EqTempC   float64 `json:"eq_temp_c"`
	StarLight string  `json:"star_light,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{"method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "planet texture server ready\n")
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{"method not allowed"})
		return
	}

	log := s.log.With("requestId", requestID(r.Context()))

	raw, err := decodeObject(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		log.Warn("bad request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	params, err := texture.ParseParameters(raw)
	if err != nil {
		log.Warn("bad planet parameters", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	// Only renders spend the budget.
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{"too many requests"})
		return
	}

	start := time.Now()
	biome, _ := texture.Classify(params.EqTempK)
	ref := s.refs.Texture(r.Context(), biome)

	result := s.synth.Render(params, ref)
	png, err := texture.Encode(result.Image)
	if err != nil {
		log.Error("encode texture", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"encode texture"})
		return
	}

	resp := TextureResponse{
		Texture: base64.StdEncoding.EncodeToString(png),
		Biome:   result.Biome.String(),
		Seed:    result.Seed,
		EqTempC: params.EqTempC(),
	}
	if result.Tinted {
		resp.StarLight = result.Tint.Name
	}

	log.Info("generated texture",
		"eqTempK", params.EqTempK,
		"eqTempC", fmt.Sprintf("%.1f", params.EqTempC()),
		"radiusRE", params.RadiusRE,
		"starTempK", params.StarTempK,
		"biome", result.Biome,
		"tint", resp.StarLight,
		"seed", result.Seed,
		"bytes", len(png),
		"elapsed", time.Since(start),
	)
	writeJSON(w, http.StatusOK, resp)
}

// decodeObject reads a single JSON object, keeping numbers as json.Number.
func decodeObject(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if raw == nil {
		return nil, errors.New("decode request: body must be a JSON object")
	}
	if dec.More() {
		return nil, errors.New("decode request: trailing data after object")
	}
	return raw, nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowOrigin)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
