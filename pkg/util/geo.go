package util

import "math"

const earthRadiusKm = 6371

// HaversineDistance returns the great-circle distance in kilometres
func HaversineDistance(lat1 float64, lng1 float64, lat2 float64, lng2 float64) float64 {
	latDistance := toRadians(lat2 - lat1)
	lngDistance := toRadians(lng2 - lng1)

	a := math.Sin(latDistance/2)*math.Sin(latDistance/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(lngDistance/2)*math.Sin(lngDistance/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
