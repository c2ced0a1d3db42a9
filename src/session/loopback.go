package session

import (
	"fmt"
	"sync"

	"symbollist-observer/src/models"

	"github.com/google/uuid"
)

// LoopbackStats counts the calls a LoopbackSession has seen.
type LoopbackStats struct {
	Registered   int
	Reissued     int
	Unregistered int
}

// -----------------------------------------------------------------------------
// LoopbackSession is an in-process session: nothing leaves the process and
// responses are injected with Deliver. Used by the replay tool and tests.
// -----------------------------------------------------------------------------

type LoopbackSession struct {
	mu    sync.Mutex
	subs  map[models.SubscriptionHandle]*loopbackSubscription
	stats LoopbackStats
}

type loopbackSubscription struct {
	queue    chan<- models.MEvent
	interest models.MInterestSpec
}

func NewLoopbackSession() *LoopbackSession {
	return &LoopbackSession{
		subs: make(map[models.SubscriptionHandle]*loopbackSubscription),
	}
}

// -----------------------------------------------------------------------------

func (s *LoopbackSession) Register(queue chan<- models.MEvent, interest models.MInterestSpec) (models.SubscriptionHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := models.SubscriptionHandle(uuid.NewString())
	s.subs[handle] = &loopbackSubscription{queue: queue, interest: interest}
	s.stats.Registered++
	return handle, nil
}

func (s *LoopbackSession) Reissue(handle models.SubscriptionHandle, interest models.MInterestSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.subs[handle]
	if !ok {
		return fmt.Errorf("reissue: unknown handle %s", handle)
	}
	entry.interest = interest
	s.stats.Reissued++
	return nil
}

func (s *LoopbackSession) Unregister(handle models.SubscriptionHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[handle]; ok {
		delete(s.subs, handle)
		s.stats.Unregistered++
	}
	return nil
}

func (s *LoopbackSession) UnregisterAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Unregistered += len(s.subs)
	s.subs = make(map[models.SubscriptionHandle]*loopbackSubscription)
	return nil
}

// -----------------------------------------------------------------------------

// HandleFor returns the open handle whose interest names itemName.
func (s *LoopbackSession) HandleFor(itemName string) (models.SubscriptionHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for handle, entry := range s.subs {
		if entry.interest.Name == itemName {
			return handle, true
		}
	}
	return "", false
}

// Deliver queues msg on the subscription's event queue.
func (s *LoopbackSession) Deliver(handle models.SubscriptionHandle, msg *models.MResponseMessage) error {
	s.mu.Lock()
	entry, ok := s.subs[handle]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("deliver: unknown handle %s", handle)
	}
	entry.queue <- models.MEvent{Handle: handle, Message: msg}
	return nil
}

// DeliverTo queues msg for the open subscription of itemName.
func (s *LoopbackSession) DeliverTo(itemName string, msg *models.MResponseMessage) error {
	handle, ok := s.HandleFor(itemName)
	if !ok {
		return fmt.Errorf("deliver: %s is not subscribed", itemName)
	}
	return s.Deliver(handle, msg)
}

func (s *LoopbackSession) Stats() LoopbackStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
