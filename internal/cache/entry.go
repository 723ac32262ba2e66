package cache

import "time"

// Entry wraps a cached payload with the time it was captured
type Entry[T any] struct {
	Payload   T
	Timestamp time.Time
}

// TimestampMillis returns the capture time in epoch milliseconds
func (e *Entry[T]) TimestampMillis() int64 {
	return e.Timestamp.UnixMilli()
}

// Age returns how old the entry is at now
func (e *Entry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// Fresh reports whether the entry may still be served at now
func (e *Entry[T]) Fresh(now time.Time, window time.Duration) bool {
	return e.Age(now) < window
}
