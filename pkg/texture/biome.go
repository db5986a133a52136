package texture

import (
	"errors"
	"fmt"
)

// Biome is the surface class chosen from the equilibrium temperature.
type Biome uint8

const (
	Ice Biome = iota
	Temperate
	Desert
)

// Temperature boundaries in Kelvin, inclusive-lower.
const (
	temperateMinK = 220.0
	desertMinK    = 370.0
)

// ErrUnknownBiome is returned by ParseBiome.
var ErrUnknownBiome = errors.New("unknown biome")

// String returns the biome key used for reference imagery.
func (b Biome) String() string {
	switch b {
	case Ice:
		return "ice"
	case Temperate:
		return "vegetation"
	case Desert:
		return "desert"
	default:
		return fmt.Sprintf("biome(%d)", uint8(b))
	}
}

// WaterLevel is the height below which the surface is liquid water.
// Only temperate worlds have any.
func (b Biome) WaterLevel() float64 {
	if b == Temperate {
		return 0.45
	}
	return 0
}

// Biomes lists every biome in declaration order.
func Biomes() []Biome {
	return []Biome{Ice, Temperate, Desert}
}

// Classify maps an equilibrium temperature to a biome and its water level.
//
//	eqTempK < 220        Ice
//	220 <= eqTempK < 370 Temperate
//	otherwise            Desert
func Classify(eqTempK float64) (Biome, float64) {
	var b Biome
	switch {
	case eqTempK < temperateMinK:
		b = Ice
	case eqTempK < desertMinK:
		b = Temperate
	default:
		// NaN compares false above and lands here.
		b = Desert
	}
	return b, b.WaterLevel()
}

// ParseBiome accepts the String form, plus "temperate" as an alias.
func ParseBiome(s string) (Biome, error) {
	switch s {
	case "ice":
		return Ice, nil
	case "vegetation", "temperate":
		return Temperate, nil
	case "desert":
		return Desert, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBiome, s)
}
