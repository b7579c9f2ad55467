package application

import "time"

// Clock supplies wall-clock time to the round engine
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real clock in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
