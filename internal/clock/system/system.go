// Package system provides a real clock implementation.
package system

import "time"

// Clock implements crawler.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current wall-clock time in the process's local zone.
// Posted and extraction dates are rendered as local calendar days.
func (Clock) Now() time.Time {
	return time.Now().In(time.Local)
}
