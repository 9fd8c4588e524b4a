// Package coordinates holds the small amount of spherical geometry the
// terminal map needs to place aircraft around the map centre.
package coordinates

import "math"

// EarthRadiusNM is the WGS84 mean radius (6371 km) in nautical miles.
const EarthRadiusNM = 6371.0 / 1.852

// Geographic is a latitude/longitude pair in decimal degrees.
type Geographic struct {
	Latitude  float64
	Longitude float64
}

func (g Geographic) radians() (lat, lon float64) {
	return Radians(g.Latitude), Radians(g.Longitude)
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// NormalizeAzimuth folds any angle into [0, 360).
func NormalizeAzimuth(azimuth float64) float64 {
	az := math.Mod(azimuth, 360.0)
	if az < 0 {
		az += 360.0
	}
	return az
}

// Bearing is the initial great-circle course from one point to another,
// clockwise from true north.
func Bearing(from, to Geographic) float64 {
	phi1, lambda1 := from.radians()
	phi2, lambda2 := to.radians()

	dLambda := lambda2 - lambda1
	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	return NormalizeAzimuth(Degrees(math.Atan2(y, x)))
}

// DistanceNauticalMiles is the haversine great-circle distance.
func DistanceNauticalMiles(from, to Geographic) float64 {
	phi1, lambda1 := from.radians()
	phi2, lambda2 := to.radians()

	sinLat := math.Sin((phi2 - phi1) / 2)
	sinLon := math.Sin((lambda2 - lambda1) / 2)
	h := sinLat*sinLat + math.Cos(phi1)*math.Cos(phi2)*sinLon*sinLon

	return 2 * EarthRadiusNM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ZoomRadiusNM returns the map radius, in nautical miles, shown at a
// slippy-map zoom level. Zoom 5 covers roughly western Europe; each level
// halves the radius.
func ZoomRadiusNM(zoom int) float64 {
	if zoom < 0 {
		zoom = 0
	}
	return 600.0 * math.Pow(2, float64(5-zoom))
}

// Offset converts a position into a polar offset (distance, bearing) from
// a centre point. The terminal map draws from this the same way a radar
// scope does.
func Offset(center, target Geographic) (distanceNM, bearing float64) {
	return DistanceNauticalMiles(center, target), Bearing(center, target)
}
