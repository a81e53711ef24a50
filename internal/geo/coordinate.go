package geo

import (
	"regexp"
	"strconv"
	"strings"
)

// Coordinate is an immutable latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Accepts "48.8566, 2.3522", "-33,151.2", "40 , -74.0060" and similar.
var coordPattern = regexp.MustCompile(`^(-?\d{1,3}(?:\.\d+)?)\s*,\s*(-?\d{1,3}(?:\.\d+)?)$`)

// Parse matches text against a strict "lat, lon" pattern and range-checks both
// components. It reports no match for anything else; callers should treat a
// false result as "do nothing" rather than an error.
func Parse(text string) (Coordinate, bool) {
	m := coordPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Coordinate{}, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: lat, Longitude: lon}, true
}

// String renders the pair the way a user would type it, e.g. "48.8566, 2.3522".
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + ", " + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}
