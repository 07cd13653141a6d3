package nmea

import (
	"encoding/json"
	"strconv"
)

// Field names one semantic measurement in the fused sensor state.
type Field string

const (
	BoatSpeedNm         Field = "boat_speed_nm"
	DepthM              Field = "depth_m"
	TurnRate            Field = "turnrate"
	HeadingMag          Field = "heading_mag"
	DeviationDeg        Field = "deviation_deg"
	DeviationRef        Field = "deviation_ref"
	VariationDeg        Field = "variation_deg"
	VariationRef        Field = "variation_ref"
	HeadingTrue         Field = "heading_true"
	Latitude            Field = "latitude"
	Longitude           Field = "longitude"
	GLLTime             Field = "gpgll_time"
	WindAngleRel        Field = "wind_angle_rel"
	WindRef             Field = "wind_ref"
	WindSpeedNm         Field = "wind_speed_nm"
	WindSpeedUnits      Field = "wind_speed_units"
	WindSpeedTrueNm     Field = "wind_speed_true_nm"
	WindSpeedApparentNm Field = "wind_speed_apparent_nm"
	WindAngleRelative   Field = "wind_angle_relative"
	WindSpeedKn         Field = "wind_speed_kn"
)

// ValueKind tags the concrete type held by a Value.
type ValueKind uint8

const (
	KindFloat ValueKind = iota
	KindInt
	KindText
)

// Value is a float, an integer or a short enumerated string.
type Value struct {
	Kind ValueKind
	F    float64
	I    int64
	S    string
}

func Float(v float64) Value { return Value{Kind: KindFloat, F: v} }
func Int(v int64) Value     { return Value{Kind: KindInt, I: v} }
func Text(v string) Value   { return Value{Kind: KindText, S: v} }

// Float64 returns the numeric value; text values are parsed with a 0 default.
func (v Value) Float64() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.I)
	case KindText:
		return FloatOr(v.S, 0)
	default:
		return v.F
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindText:
		return v.S
	default:
		return strconv.FormatFloat(v.F, 'f', -1, 64)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return json.Marshal(v.I)
	case KindText:
		return json.Marshal(v.S)
	default:
		return json.Marshal(v.F)
	}
}

// Reading is one decoded measurement. Its timestamp is the ingestion time.
type Reading struct {
	Field Field
	Value Value
}

// Vocabulary lists every known field in display order together with its
// neutral startup value.
var Vocabulary = []Reading{
	{BoatSpeedNm, Float(0)},
	{DepthM, Float(0)},
	{TurnRate, Float(0)},
	{HeadingMag, Float(0)},
	{DeviationDeg, Float(0)},
	{DeviationRef, Text("")},
	{VariationDeg, Float(0)},
	{VariationRef, Text("")},
	{HeadingTrue, Float(0)},
	{Latitude, Float(0)},
	{Longitude, Float(0)},
	{GLLTime, Float(0)},
	{WindAngleRel, Float(0)},
	{WindRef, Text("R")},
	{WindSpeedNm, Float(0)},
	{WindSpeedUnits, Text("")},
	{WindSpeedTrueNm, Float(0)},
	{WindSpeedApparentNm, Float(0)},
	{WindAngleRelative, Int(0)},
	{WindSpeedKn, Float(0)},
}
