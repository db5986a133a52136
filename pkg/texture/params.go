package texture

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Request keys carrying the three scalar inputs.
const (
	KeyEqTemp   = "pl_eqt"
	KeyRadius   = "pl_rade"
	KeyStarTemp = "st_teff"
)

// Defaults substituted for absent or null inputs.
const (
	DefaultEqTempK   = 288.0
	DefaultRadiusRE  = 1.0
	DefaultStarTempK = 5778.0
)

// ErrInvalidParameter is returned by ParseParameters for non-numeric inputs.
var ErrInvalidParameter = errors.New("invalid planet parameter")

// Parameters are the resolved inputs of one synthesis.
// Raw keeps the request mapping as received and is only used for the seed.
type Parameters struct {
	EqTempK   float64
	RadiusRE  float64
	StarTempK float64
	Raw       map[string]any
}

// DefaultParameters returns an Earth-like planet around a Sun-like star.
func DefaultParameters() Parameters {
	return Parameters{
		EqTempK:   DefaultEqTempK,
		RadiusRE:  DefaultRadiusRE,
		StarTempK: DefaultStarTempK,
	}
}

// ParseParameters resolves a decoded request mapping into Parameters.
// Missing and null fields take their defaults; any other non-numeric or
// non-finite value is rejected.
func ParseParameters(raw map[string]any) (Parameters, error) {
	p := DefaultParameters()
	p.Raw = raw

	fields := []struct {
		key string
		dst *float64
	}{
		{KeyEqTemp, &p.EqTempK},
		{KeyRadius, &p.RadiusRE},
		{KeyStarTemp, &p.StarTempK},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok || v == nil {
			continue
		}
		n, ok := toFloat(v)
		if !ok {
			return Parameters{}, fmt.Errorf("%w: %s = %v", ErrInvalidParameter, f.key, v)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return Parameters{}, fmt.Errorf("%w: %s is not finite", ErrInvalidParameter, f.key)
		}
		*f.dst = n
	}
	return p, nil
}

// EqTempC returns the equilibrium temperature in degrees Celsius.
func (p Parameters) EqTempC() float64 {
	return p.EqTempK - 273.15
}

// Seed derives the noise seed from the raw request.
// Keys are sorted and values canonicalized before hashing, so the seed does
// not depend on map iteration order or on how a number was spelled.
func (p Parameters) Seed() int64 {
	keys := make([]string, 0, len(p.Raw))
	for k := range p.Raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := xxhash.New()
	for _, k := range keys {
		d.WriteString(k)
		d.Write([]byte{0})
		d.WriteString(canonicalValue(p.Raw[k]))
		d.Write([]byte{0})
	}
	return int64(d.Sum64())
}

func canonicalValue(v any) string {
	if v == nil {
		return "null"
	}
	if n, ok := toFloat(v); ok {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	data, err := json.Marshal(v)
	if err != nil {
		// Channels, funcs and the like never come out of a JSON decoder.
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(data)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
