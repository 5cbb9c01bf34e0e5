package timer

import (
	"sync"
	"time"
)

// Scheduler runs a callback periodically.
type Scheduler interface {
	// Every calls fn once per interval until cancel is called. cancel
	// must not block waiting for an in-flight fn to return.
	Every(interval time.Duration, fn func()) (cancel func())
}

// TickerScheduler is a Scheduler backed by one time.Ticker goroutine per
// callback.
type TickerScheduler struct{}

// Every implements Scheduler.
func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	stop := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}
