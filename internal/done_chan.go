// Package internal holds the concurrency plumbing used by this module's
// worker loops: the activity worker's WorkerPool, and the reaper's
// Lifecycle and TimerTask. None of it is aware of queues or pipelines.
package internal

import "sync"

// DoneChan is closed exactly once, when whatever it represents finishes.
type DoneChan chan struct{}

// DoneFunc produces a DoneChan, typically by kicking off a shutdown and
// returning a channel that closes once it completes.
type DoneFunc func() DoneChan

func wrapWaitGroup(wg *sync.WaitGroup) DoneChan {
	ret := make(DoneChan)
	go func() {
		wg.Wait()
		close(ret)
	}()
	return ret
}

// Combine returns a DoneChan that closes once both first and second have.
func Combine(first DoneChan, second DoneChan) DoneChan {
	ret := make(DoneChan)
	go func() {
		<-first
		<-second
		close(ret)
	}()
	return ret
}
