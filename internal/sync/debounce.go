package sync

import (
	"context"
	"time"
)

// DebouncedAutoPush schedules an auto-push on the trailing edge of the
// debounce window, measured from the most recent call. A burst of edits
// collapses into one push.
//
// Every pending caller shares the outcome of the push that eventually
// fires: the returned channel yields exactly one value, and the send is
// buffered so a caller that drops the channel never blocks the push.
func (s *Syncer) DebouncedAutoPush() <-chan error {
	ch := make(chan error, 1)

	s.debounceMu.Lock()
	s.waiters = append(s.waiters, ch)
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounceInterval, s.firePendingPush)
	s.debounceMu.Unlock()

	return ch
}

// firePendingPush runs the collapsed auto-push and fans the outcome out
// to every caller debounced into it.
func (s *Syncer) firePendingPush() {
	s.debounceMu.Lock()
	waiters := s.waiters
	s.waiters = nil
	s.debounceTimer = nil
	s.debounceMu.Unlock()

	// A fire that raced a newer timer can find its waiters already
	// claimed; pushing again for nobody would be wasted traffic.
	if len(waiters) == 0 {
		return
	}

	err := s.AutoPush(context.Background())
	for _, ch := range waiters {
		ch <- err
	}
}
