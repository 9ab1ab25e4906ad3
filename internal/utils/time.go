package utils

import "time"

// NowUTC is the default clock for presence timestamps and message times.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Clock lets tests pin time.
type Clock func() time.Time

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}
