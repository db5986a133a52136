package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/OCharnyshevich/planet-texture-server/internal/server/config"
)

// Storage handles file-based persistence for config and cached reference textures.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	dirs := []string{
		dir,
		filepath.Join(dir, "textures"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return &Storage{dir: dir, log: log}, nil
}

// Dir returns the storage root.
func (s *Storage) Dir() string { return s.dir }

// LoadConfig reads config.json into cfg. If the file does not exist, cfg is unchanged.
func (s *Storage) LoadConfig(cfg *config.Config) error {
	path := filepath.Join(s.dir, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	s.log.Info("loaded config from file", "path", path)
	return nil
}

// SaveConfig writes cfg to config.json atomically.
func (s *Storage) SaveConfig(cfg *config.Config) error {
	path := filepath.Join(s.dir, "config.json")
	return s.atomicWriteJSON(path, cfg)
}

// LoadReference returns the cached texture for biome and its metadata,
// or nil if nothing is cached.
func (s *Storage) LoadReference(biome string) (image.Image, *ReferenceMeta, error) {
	metaPath, imgPath := s.referencePaths(biome)

	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read reference meta %s: %w", biome, err)
	}
	var meta ReferenceMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, nil, fmt.Errorf("parse reference meta %s: %w", biome, err)
	}

	f, err := os.Open(imgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("open reference %s: %w", biome, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("decode reference %s: %w", biome, err)
	}
	return img, &meta, nil
}

// SaveReference writes img and its metadata atomically. The image goes
// first so a present meta file always points at a complete PNG.
func (s *Storage) SaveReference(img image.Image, meta *ReferenceMeta) error {
	metaPath, imgPath := s.referencePaths(meta.Biome)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode reference %s: %w", meta.Biome, err)
	}
	if err := atomicWrite(imgPath, buf.Bytes()); err != nil {
		return err
	}
	if err := s.atomicWriteJSON(metaPath, meta); err != nil {
		return err
	}
	s.log.Debug("saved reference texture", "biome", meta.Biome, "path", imgPath)
	return nil
}

func (s *Storage) referencePaths(biome string) (meta, img string) {
	base := filepath.Join(s.dir, "textures", biome+"_reference")
	return base + ".json", base + ".png"
}

// atomicWriteJSON marshals v to JSON and writes it atomically using a temp file + rename.
func (s *Storage) atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
