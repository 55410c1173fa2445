package chrono

import (
	"time"
)

// API is the clock used by anything that needs "now" or the campus time zone.
//
// note: fault injection point
type API interface {
	Now() time.Time
	Location() *time.Location
}

// campus pages print dates in China Standard Time without an offset, UTC+8
// all year round.
var fallbackLocation = time.FixedZone("CST", 8*60*60)

// CampusLocation returns Asia/Shanghai, or a fixed UTC+8 zone when the tz
// database is unavailable.
func CampusLocation() *time.Location {
	location, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return fallbackLocation
	}
	return location
}

type StandardImpl struct {
	location *time.Location
}

func NewStandardImpl() StandardImpl {
	return StandardImpl{location: CampusLocation()}
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant, used in tests.
type FixedImpl struct {
	Instant time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Instant
}

func (f FixedImpl) Location() *time.Location {
	return f.Instant.Location()
}

// ParseDate parses a date printed by a campus page in the given layout, the
// result lives in the campus time zone.
func ParseDate(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, CampusLocation())
}
