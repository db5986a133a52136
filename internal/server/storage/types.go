package storage

import "time"

// ReferenceMeta describes a cached reference texture.
// A cached image is reused only while its Source matches the configured one.
type ReferenceMeta struct {
	Biome     string    `json:"biome"`
	Source    string    `json:"source"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FetchedAt time.Time `json:"fetched_at"`
}
