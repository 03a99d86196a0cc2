// Package clock abstracts the source of current time behind a function
// type, so that time-dependent code can be driven deterministically in
// tests.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

// System returns a Clock backed by time.Now.
func System() Clock { return time.Now }

// Frozen returns a Clock that always reports t.
func Frozen(t time.Time) Clock { return func() time.Time { return t } }

// Stepping returns a Clock that reports start on its first call and
// advances by step on every subsequent call. The returned Clock is safe
// for concurrent use.
func Stepping(start time.Time, step time.Duration) Clock {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}
