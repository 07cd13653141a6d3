package nmea

import (
	"math"
	"strconv"
	"strings"
)

// FloatOr parses s as a float, returning def for empty or malformed text.
func FloatOr(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// IntOr parses s as a base-10 integer, returning def for empty or malformed
// text. Decimal text such as "43.7" is malformed.
func IntOr(s string, def int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// DMMToDecimal converts ddmm.mmmm (or dddmm.mmmm) to decimal degrees.
// S and W hemispheres are negative.
func DMMToDecimal(dmm float64, hemi string) float64 {
	deg := math.Floor(dmm / 100)
	mins := math.Mod(dmm, 100)
	dec := deg + mins/60.0
	switch strings.ToUpper(strings.TrimSpace(hemi)) {
	case "S", "W":
		dec = -dec
	}
	return dec
}
