package source

import (
	"math"

	geo "github.com/kellydunn/golang-geo"
)

const kmPerNM = 1.852

// DistanceNM returns the great-circle distance between two points in
// nautical miles.
func DistanceNM(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.NewPoint(lat1, lon1).GreatCircleDistance(geo.NewPoint(lat2, lon2)) / kmPerNM
}

// BearingDeg returns the initial true bearing from the first point to the
// second, normalized to [0, 360).
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	b := geo.NewPoint(lat1, lon1).BearingTo(geo.NewPoint(lat2, lon2))
	return normalizeDeg(b)
}

// CirclePoints returns n points evenly spaced by bearing on a circle of
// radiusNM around the center, starting due north and going clockwise.
func CirclePoints(lat, lon, radiusNM float64, n int) [][2]float64 {
	if n <= 0 {
		return nil
	}
	center := geo.NewPoint(lat, lon)
	out := make([][2]float64, 0, n)
	for i := 0; i < n; i++ {
		bearing := 360 * float64(i) / float64(n)
		p := center.PointAtDistanceAndBearing(radiusNM*kmPerNM, bearing)
		out = append(out, [2]float64{p.Lat(), p.Lng()})
	}
	return out
}

func normalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
