package clock

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// UTC is the process clock.
type UTC struct{}

func (UTC) Now() time.Time {
	return time.Now().UTC()
}

// Func adapts a function to a Clock.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f()
}
