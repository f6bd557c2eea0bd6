package util

import (
	"time"
)

// TimeBoundWithCacheFunc decorates fn in order to bound its execution time.
// When the decorated function is called and fn takes more than timeout, the
// value of the previous call is returned instead, provided it is younger than
// maxAge. Without such a value, the call blocks until fn returns.
// The decorated function must not be called concurrently.
func TimeBoundWithCacheFunc[T any](fn func() T, timeout, maxAge time.Duration) func() T {
	var previous T
	var previousTimestamp time.Time
	var havePrevious bool

	return func() T {
		done := make(chan T, 1)
		timer := time.NewTimer(timeout)

		go func() {
			done <- fn()
		}()

		var result T
		select {
		case result = <-done:
			timer.Stop()
		case <-timer.C:
			if havePrevious && time.Since(previousTimestamp) < maxAge {
				return previous
			}
			result = <-done
		}

		previous = result
		previousTimestamp = time.Now()
		havePrevious = true
		return result
	}
}
