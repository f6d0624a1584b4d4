package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBadLocation is returned when a batch element is neither a city name
// string nor an integer-like zip code.
var ErrBadLocation = errors.New("location should be either city(string) or zipcode(integer)")

// ObservedAtLayout is the upstream ob_time format ("YYYY-MM-DD HH:MM", UTC).
const ObservedAtLayout = "2006-01-02 15:04"

var postalPattern = regexp.MustCompile(`^[0-9]+$`)

// Location identifies a place to fetch weather for: a free-text city name or
// a postal code. A numeric value and its string form (10005 vs "10005")
// normalize to the same canonical key, so both address the same cache entry.
type Location struct {
	value  string
	postal bool
}

// NewLocation builds a Location from a raw batch element. Accepted dynamic
// types are strings and integer-like numbers (including whole floats, which
// is how JSON decoding surfaces zip codes).
func NewLocation(v any) (Location, error) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		return Location{value: s, postal: postalPattern.MatchString(s)}, nil
	case int:
		return postalLocation(int64(x)), nil
	case int8:
		return postalLocation(int64(x)), nil
	case int16:
		return postalLocation(int64(x)), nil
	case int32:
		return postalLocation(int64(x)), nil
	case int64:
		return postalLocation(x), nil
	case uint:
		return postalLocation(int64(x)), nil
	case uint8:
		return postalLocation(int64(x)), nil
	case uint16:
		return postalLocation(int64(x)), nil
	case uint32:
		return postalLocation(int64(x)), nil
	case uint64:
		return postalLocation(int64(x)), nil
	case float32:
		return floatLocation(float64(x))
	case float64:
		return floatLocation(x)
	default:
		return Location{}, fmt.Errorf("%w: %T", ErrBadLocation, v)
	}
}

func postalLocation(n int64) Location {
	return Location{value: strconv.FormatInt(n, 10), postal: true}
}

func floatLocation(f float64) (Location, error) {
	n := int64(f)
	if float64(n) != f {
		return Location{}, fmt.Errorf("%w: %v", ErrBadLocation, f)
	}
	return postalLocation(n), nil
}

// Key returns the canonical cache key for this location.
func (l Location) Key() string {
	return l.value
}

// IsPostal reports whether the location is a postal code rather than a city name.
func (l Location) IsPostal() bool {
	return l.postal
}

// WeatherInfo carries the human-readable conditions of a record.
type WeatherInfo struct {
	Description string `json:"description"`
}

// WeatherRecord is one location's current-conditions snapshot. ObservedAt is
// the upstream observation time string; it doubles as the freshness anchor.
// Only these fields are retained from the upstream payload.
type WeatherRecord struct {
	Timezone   string      `json:"timezone"`
	ObservedAt string      `json:"observedAt"`
	CityName   string      `json:"cityName"`
	Datetime   string      `json:"datetime"`
	Weather    WeatherInfo `json:"weather"`
}

// ObservedTime parses ObservedAt as a UTC timestamp.
func (r WeatherRecord) ObservedTime() (time.Time, error) {
	return time.Parse(ObservedAtLayout, r.ObservedAt)
}

// Batch maps a location key to its weather record. Every key present holds
// exactly one record; an absent key means the location was never fetched.
type Batch map[string]WeatherRecord

// Merge returns the union of b and other, with other winning on key collision.
// Neither input is mutated.
func (b Batch) Merge(other Batch) Batch {
	merged := make(Batch, len(b)+len(other))
	for k, v := range b {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
