package usecase

import "time"

// Clock is injected wherever the current instant matters so tests can pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock reports wall-clock time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports T. Useful for seeding and tests.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
