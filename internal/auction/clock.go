package auction

import "time"

// Clock supplies the engine's notion of current time, so deadline checks
// are testable without sleeping.
type Clock interface {
	Now() time.Time
}

// systemClock is the wall-clock implementation.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}
