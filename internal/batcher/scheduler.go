package batcher

import "time"

// Scheduler runs a window's flush at the end of the batch window
type Scheduler interface {
	Schedule(fn func())
}

// TimerScheduler runs fn after Wait on its own goroutine
type TimerScheduler struct {
	Wait time.Duration
}

// Schedule implements Scheduler
func (s TimerScheduler) Schedule(fn func()) {
	time.AfterFunc(s.Wait, fn)
}
