package texture

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParseParametersDefaults(t *testing.T) {
	p, err := ParseParameters(map[string]any{"pl_eqt": nil, "kepid": 1234.0})
	if err != nil {
		t.Fatalf("ParseParameters: %v", err)
	}
	if p.EqTempK != DefaultEqTempK || p.RadiusRE != DefaultRadiusRE || p.StarTempK != DefaultStarTempK {
		t.Errorf("got (%v, %v, %v), want defaults", p.EqTempK, p.RadiusRE, p.StarTempK)
	}
	if p.Raw["kepid"] != 1234.0 {
		t.Errorf("extra field not kept: %v", p.Raw)
	}
}

func TestParseParametersNumericKinds(t *testing.T) {
	p, err := ParseParameters(map[string]any{
		"pl_eqt":  json.Number("150.5"),
		"pl_rade": 2,
		"st_teff": float32(3000),
	})
	if err != nil {
		t.Fatalf("ParseParameters: %v", err)
	}
	if p.EqTempK != 150.5 || p.RadiusRE != 2 || p.StarTempK != 3000 {
		t.Errorf("got (%v, %v, %v), want (150.5, 2, 3000)", p.EqTempK, p.RadiusRE, p.StarTempK)
	}
}

func TestParseParametersRejectsNonNumeric(t *testing.T) {
	inputs := []map[string]any{
		{"pl_eqt": "hot"},
		{"pl_rade": true},
		{"st_teff": []any{1.0}},
		{"pl_eqt": math.Inf(1)},
		{"pl_rade": math.NaN()},
	}
	for _, in := range inputs {
		_, err := ParseParameters(in)
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("ParseParameters(%v) error = %v, want ErrInvalidParameter", in, err)
		}
	}
}

func TestSeedStable(t *testing.T) {
	a := Parameters{Raw: map[string]any{"pl_eqt": 288.0, "pl_rade": 1.0, "st_teff": 5778.0, "name": "Kepler-22 b"}}
	b := Parameters{Raw: map[string]any{"name": "Kepler-22 b", "st_teff": json.Number("5778"), "pl_rade": 1, "pl_eqt": json.Number("288.0")}}
	if a.Seed() != b.Seed() {
		t.Errorf("seed differs for equivalent inputs: %d vs %d", a.Seed(), b.Seed())
	}

	c := Parameters{Raw: map[string]any{"pl_eqt": 289.0, "pl_rade": 1.0, "st_teff": 5778.0, "name": "Kepler-22 b"}}
	if a.Seed() == c.Seed() {
		t.Error("different inputs should produce different seeds")
	}
}

func TestSeedNestedValues(t *testing.T) {
	a := Parameters{Raw: map[string]any{"meta": map[string]any{"b": 1.0, "a": "x"}, "missing": nil}}
	b := Parameters{Raw: map[string]any{"missing": nil, "meta": map[string]any{"a": "x", "b": 1.0}}}
	if a.Seed() != b.Seed() {
		t.Errorf("seed differs for nested maps: %d vs %d", a.Seed(), b.Seed())
	}
	if (Parameters{}).Seed() != (Parameters{Raw: map[string]any{}}).Seed() {
		t.Error("nil and empty raw input should hash alike")
	}
}

func TestSeedKeyBoundaries(t *testing.T) {
	// "ab"="c" must not collide with "a"="bc".
	a := Parameters{Raw: map[string]any{"ab": "c"}}
	b := Parameters{Raw: map[string]any{"a": "bc"}}
	if a.Seed() == b.Seed() {
		t.Error("key/value boundary is ambiguous")
	}
}

func TestEqTempC(t *testing.T) {
	p := Parameters{EqTempK: 273.15}
	if got := p.EqTempC(); math.Abs(got) > 1e-9 {
		t.Errorf("EqTempC = %v, want 0", got)
	}
}

func TestErrInvalidParameterMessage(t *testing.T) {
	_, err := ParseParameters(map[string]any{"st_teff": "blue"})
	if err == nil || !strings.Contains(err.Error(), "st_teff") {
		t.Errorf("error %v should name the field", err)
	}
}
