package engine

import "time"

// Clock is the injected wall-clock collaborator named in spec.md §9. It
// keeps the matching path testable without reaching for time.Now directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real system clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// nowMillis returns c's current time as Unix milliseconds, the unit of
// TradeEvent.TimestampMs. Nothing calls it at present; BookManager stamps
// its events inline.
func nowMillis(c Clock) uint64 {
	return uint64(c.Now().UnixMilli())
}
