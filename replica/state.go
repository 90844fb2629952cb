package replica

import (
	"sync"
	"time"

	lock "github.com/viney-shih/go-lock"
)

// pollInterval bounds a single TryLockWithTimeout attempt inside the
// bounded-wait loops below; it is unrelated to the overall TIMEOUT the
// caller passes to WaitFor/WaitUntilSet.
const pollInterval = 2 * time.Millisecond

// leaderState holds the shared, optional leader_id field from spec §3.
//
// The predicate itself (set, id) lives behind a plain sync.Mutex. A second
// lock, signal, is a viney-shih/go-lock CASMutex used purely as a
// release-on-transition gate: it is held Lock()'d whenever the predicate is
// false and Unlock()'d exactly on the false->true transition (re-armed on
// true->false). WaitUntilSet blocks on signal.TryLockWithTimeout, the same
// bounded-attempt primitive the teacher's access-control latch polls in
// network/detector/rlsm.go, and re-checks the real predicate under mu on
// every wakeup rather than trusting the gate alone (spec §9: bounded wait,
// predicate re-checked on every wakeup).
type leaderState struct {
	mu     sync.Mutex
	set    bool
	id     uint64
	signal lock.RWMutex
}

func newLeaderState() *leaderState {
	s := &leaderState{signal: lock.NewCASMutex()}
	s.signal.Lock() // predicate starts false: gate starts closed.
	return s
}

// Set records a newly learned leader id and opens the gate if this is the
// false->true transition.
func (s *leaderState) Set(id uint64) {
	s.mu.Lock()
	wasSet := s.set
	s.set = true
	s.id = id
	s.mu.Unlock()
	if !wasSet {
		s.signal.Unlock()
	}
}

// Clear unsets the leader id, as done at the start of a fresh election, and
// re-arms the gate if this is the true->false transition.
func (s *leaderState) Clear() {
	s.mu.Lock()
	wasSet := s.set
	s.set = false
	s.mu.Unlock()
	if wasSet {
		s.signal.Lock()
	}
}

// Get returns (id, true) if a leader is currently known.
func (s *leaderState) Get() (uint64, bool) {
	s.mu.Lock()
	id, ok := s.id, s.set
	s.mu.Unlock()
	return id, ok
}

// WaitUntilSet blocks until a leader id is known or stopped() reports true,
// re-checking the predicate after every bounded gate attempt rather than
// trusting a single wakeup.
func (s *leaderState) WaitUntilSet(stopped func() bool) (uint64, bool) {
	for {
		if id, ok := s.Get(); ok {
			return id, true
		}
		if stopped() {
			return 0, false
		}
		if s.signal.TryLockWithTimeout(pollInterval) {
			s.signal.Unlock()
		}
	}
}

// ackState holds the shared got_ack field from spec §3, used by
// safe_send_next to confirm a reliable unicast. Same signal-gate design as
// leaderState.
type ackState struct {
	mu     sync.Mutex
	set    bool
	id     uint64
	signal lock.RWMutex
}

func newAckState() *ackState {
	s := &ackState{signal: lock.NewCASMutex()}
	s.signal.Lock()
	return s
}

// Set records the id of the last ACK received and opens the gate if this is
// the false->true transition.
func (s *ackState) Set(id uint64) {
	s.mu.Lock()
	wasSet := s.set
	s.set = true
	s.id = id
	s.mu.Unlock()
	if !wasSet {
		s.signal.Unlock()
	}
}

// Clear resets got_ack before a new reliable-send attempt, re-arming the
// gate if this is the true->false transition.
func (s *ackState) Clear() {
	s.mu.Lock()
	wasSet := s.set
	s.set = false
	s.mu.Unlock()
	if wasSet {
		s.signal.Lock()
	}
}

// WaitFor blocks up to timeout for got_ack == want, re-checking the
// predicate on every bounded gate attempt.
func (s *ackState) WaitFor(want uint64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		got := s.set && s.id == want
		s.mu.Unlock()
		if got {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		wait := pollInterval
		if remaining < wait {
			wait = remaining
		}
		if s.signal.TryLockWithTimeout(wait) {
			s.signal.Unlock()
		}
	}
}
