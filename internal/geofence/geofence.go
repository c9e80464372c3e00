package geofence

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadiusMeters = 6371000

// Checker validates reported GPS coordinates against a circular fence around
// the warehouse.
type Checker struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

// Default fence around the Nicosia warehouse.
func NewDefaultChecker() Checker {
	return Checker{Latitude: 35.0470, Longitude: 33.3926, RadiusMeters: 200}
}

type Result struct {
	Valid          bool    `json:"valid"`
	DistanceMeters float64 `json:"distance_meters"`
	Message        string  `json:"message"`
}

// Distance returns the haversine great-circle distance in meters.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Validate parses a "lat,lon" coordinate string and checks it against the
// fence. A malformed string is reported as invalid, not as an error: the
// caller decides whether the fence is enforced at all.
func (g Checker) Validate(coordinates string) Result {
	parts := strings.Split(coordinates, ",")
	if len(parts) != 2 {
		return Result{Message: "Invalid coordinate format, expected \"lat,lon\""}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Result{Message: "Invalid latitude"}
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Result{Message: "Invalid longitude"}
	}

	d := Distance(g.Latitude, g.Longitude, lat, lon)
	if d > g.RadiusMeters {
		return Result{
			DistanceMeters: d,
			Message:        fmt.Sprintf("Location is %.0f meters from the warehouse (limit %.0f)", d, g.RadiusMeters),
		}
	}
	return Result{Valid: true, DistanceMeters: d, Message: "Within warehouse area"}
}
