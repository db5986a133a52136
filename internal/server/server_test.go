package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/OCharnyshevich/planet-texture-server/internal/server/config"
	"github.com/OCharnyshevich/planet-texture-server/pkg/texture"
)

type fakeRefs struct {
	mu     sync.Mutex
	size   int
	biomes []texture.Biome
}

func (f *fakeRefs) Texture(_ context.Context, biome texture.Biome) *image.RGBA {
	f.mu.Lock()
	f.biomes = append(f.biomes, biome)
	f.mu.Unlock()
	return texture.FlatTexture(f.size, color.RGBA{128, 128, 128, 255})
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *fakeRefs) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Size = 64
	cfg.RateLimit = 0
	if mutate != nil {
		mutate(cfg)
	}
	refs := &fakeRefs{size: cfg.Size}
	return New(cfg, refs, slog.New(slog.NewTextHandler(io.Discard, nil))), refs
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate_texture", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerateTexture(t *testing.T) {
	s, refs := newTestServer(t, nil)
	rec := post(t, s.Handler(), `{"pl_eqt": 150, "pl_rade": 1.0, "st_teff": 9000, "kepid": 10797460}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id")
	}

	var resp TextureResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Biome != "ice" || resp.StarLight != "cool" {
		t.Errorf("biome/starlight = %q/%q, want ice/cool", resp.Biome, resp.StarLight)
	}
	if len(refs.biomes) != 1 || refs.biomes[0] != texture.Ice {
		t.Errorf("references requested = %v, want [ice]", refs.biomes)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Texture)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("bounds = %v, want 64x64", b)
	}
}

func TestGenerateTextureDeterministic(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body := `{"st_teff": 5778, "pl_eqt": 288, "pl_rade": 1}`
	a := post(t, s.Handler(), body)
	b := post(t, s.Handler(), `{"pl_rade": 1.0, "pl_eqt": 288.0, "st_teff": 5778}`)

	var ra, rb TextureResponse
	json.Unmarshal(a.Body.Bytes(), &ra)
	json.Unmarshal(b.Body.Bytes(), &rb)
	if ra.Texture == "" || ra.Texture != rb.Texture || ra.Seed != rb.Seed {
		t.Error("equivalent requests produced different textures")
	}
}

func TestGenerateTextureDefaults(t *testing.T) {
	s, refs := newTestServer(t, nil)
	rec := post(t, s.Handler(), `{"pl_eqt": null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if refs.biomes[0] != texture.Temperate {
		t.Errorf("biome = %v, want vegetation for defaults", refs.biomes[0])
	}
}

func TestGenerateTextureBadInput(t *testing.T) {
	s, refs := newTestServer(t, nil)
	bodies := []string{
		`{"pl_eqt": "warm"}`,
		`{"pl_rade": [1]}`,
		`[288, 1, 5778]`,
		`null`,
		`{"pl_eqt": 288`,
		`{} {}`,
	}
	for _, body := range bodies {
		rec := post(t, s.Handler(), body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
			t.Errorf("body %s: error response %q (%v)", body, rec.Body, err)
		}
	}
	if len(refs.biomes) != 0 {
		t.Errorf("references fetched for rejected requests: %v", refs.biomes)
	}
}

func TestGenerateTextureBodyLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) { c.MaxBodyBytes = 16 })
	rec := post(t, s.Handler(), `{"pl_eqt": 288, "pl_rade": 1.0, "st_teff": 5778}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/generate_texture", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if !strings.Contains(rec.Body.String(), `"status":"OK"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/generate_texture", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ready") {
		t.Errorf("index = %d %q", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Size = 16
		c.RateLimit = 0.001
		c.RateBurst = 1
	})
	h := s.Handler()
	if rec := post(t, h, `{}`); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	if rec := post(t, h, `{}`); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestRateLimitIgnoresBadRequests(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Size = 16
		c.RateLimit = 0.001
		c.RateBurst = 1
	})
	h := s.Handler()
	for _, body := range []string{`not json`, `[1, 2]`, `{"pl_eqt": "hot"}`} {
		if rec := post(t, h, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", body, rec.Code)
		}
	}
	if rec := post(t, h, `{}`); rec.Code != http.StatusOK {
		t.Errorf("render after bad requests: status = %d, want 200", rec.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("X-Request-Id = %q, want abc-123", got)
	}
}

func TestGzip(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/generate_texture", strings.NewReader(`{}`))
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	var resp TextureResponse
	if err := json.NewDecoder(zr).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Texture == "" {
		t.Error("empty texture")
	}
}
