package nmea

import "strings"

const (
	kmhPerKnot = 1.852
	knotsPerMS = 1.943844
)

// GLL: Geographic Position
//
//	0: $GPGLL
//	1: latitude (ddmm.mmmm)
//	2: N/S
//	3: longitude (dddmm.mmmm)
//	4: E/W
//	5: UTC time (hhmmss.ss)
//	6: status (A=valid, V=invalid)
//
// gpgll_time is emitted last: it closes the fix cycle.
func decodeGLL(s Sentence) []Reading {
	lat := DMMToDecimal(FloatOr(s.Field(1), 0), s.Field(2))
	lon := DMMToDecimal(FloatOr(s.Field(3), 0), s.Field(4))
	return []Reading{
		{Latitude, Float(lat)},
		{Longitude, Float(lon)},
		{GLLTime, Float(FloatOr(s.Field(5), 0))},
	}
}

// HDG: Heading, Deviation and Variation
//
//	1: magnetic heading
//	2: deviation degrees
//	3: deviation direction (E/W)
//	4: variation degrees
//	5: variation direction (E/W)
func decodeHDG(s Sentence) []Reading {
	return []Reading{
		{HeadingMag, Float(FloatOr(s.Field(1), 0))},
		{DeviationDeg, Float(FloatOr(s.Field(2), 0))},
		{DeviationRef, Text(s.Field(3))},
		{VariationDeg, Float(FloatOr(s.Field(4), 0))},
		{VariationRef, Text(s.Field(5))},
	}
}

// HDM: Heading, Magnetic
//
//	1: heading
//	2: M
func decodeHDM(s Sentence) []Reading {
	return []Reading{
		{HeadingMag, Int(IntOr(s.Field(1), 0))},
	}
}

// VHW: Water Speed and Heading
//
//	1: true heading, 2: T
//	3: magnetic heading, 4: M
//	5: speed (knots), 6: N
//	7: speed (km/h), 8: K
func decodeVHW(s Sentence) []Reading {
	return []Reading{
		{HeadingTrue, Int(IntOr(s.Field(1), 0))},
		{HeadingMag, Int(IntOr(s.Field(3), 0))},
		{BoatSpeedNm, Float(FloatOr(s.Field(5), 0))},
	}
}

// DPT: Depth Below Transducer
//
//	1: depth (m), empty when the sounder has lost bottom
//	2: transducer offset (m)
//	3: maximum range (m)
func decodeDPT(s Sentence) []Reading {
	return []Reading{
		{DepthM, Float(FloatOr(s.Field(1), 0))},
	}
}

// ROT: Rate of Turn
//
//	1: rate (deg/min, negative = port)
//	2: status (A/V)
func decodeROT(s Sentence) []Reading {
	return []Reading{
		{TurnRate, Float(FloatOr(s.Field(1), 0))},
	}
}

// MWV: Wind Speed and Angle
//
//	1: angle (deg)
//	2: reference (R=relative/apparent, T=true)
//	3: speed
//	4: units (K=km/h, M=m/s, N=knots)
//	5: status (A/V)
func decodeMWV(s Sentence) []Reading {
	ref := s.Field(2)
	speed := FloatOr(s.Field(3), 0)
	units := s.Field(4)
	out := []Reading{
		{WindAngleRel, Float(FloatOr(s.Field(1), 0))},
		{WindRef, Text(ref)},
		{WindSpeedNm, Float(speed)},
		{WindSpeedUnits, Text(units)},
	}
	kn := speedToKnots(speed, units)
	switch strings.ToUpper(ref) {
	case "R":
		out = append(out, Reading{WindSpeedApparentNm, Float(kn)})
	case "T":
		out = append(out, Reading{WindSpeedTrueNm, Float(kn)})
	}
	return out
}

// VWR: Relative Wind Speed and Angle
//
//	1: angle (deg), 2: L/R (or R/T on some instruments)
//	3: speed (knots), 4: N
//	5: speed (m/s), 6: M
//	7: speed (km/h), 8: K
func decodeVWR(s Sentence) []Reading {
	return []Reading{
		{WindAngleRelative, Int(IntOr(s.Field(1), 0))},
		{WindSpeedKn, Float(FloatOr(s.Field(3), 0))},
	}
}

func speedToKnots(v float64, units string) float64 {
	switch strings.ToUpper(units) {
	case "K":
		return v / kmhPerKnot
	case "M":
		return v * knotsPerMS
	default:
		return v
	}
}
