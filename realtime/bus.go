package realtime

import (
	"sync"

	"ivar-client/models"
)

// Filter selects the frames a subscriber wants.
type Filter func(models.Message) bool

// FromPeer accepts frames sent by peerID.
func FromPeer(peerID string) Filter {
	return func(m models.Message) bool { return m.Sender == peerID }
}

// Bus fans inbound frames out to subscribers. Every subscriber has its own
// unbounded queue, so a slow reader never loses or reorders frames and never
// blocks the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber. A nil filter receives every frame.
func (b *Bus) Subscribe(filter Filter) *Subscription {
	s := &Subscription{
		bus:    b,
		filter: filter,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan models.Message),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.pump()
	return s
}

// Publish queues msg for every subscriber whose filter accepts it.
func (b *Bus) Publish(msg models.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if s.filter == nil || s.filter(msg) {
			s.enqueue(msg)
		}
	}
}

// Close ends every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

func (b *Bus) size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

type Subscription struct {
	bus    *Bus
	filter Filter

	mu     sync.Mutex
	queue  []models.Message
	closed bool

	notify    chan struct{}
	done      chan struct{}
	out       chan models.Message
	closeOnce sync.Once
}

// C delivers frames in arrival order. It is closed after Close.
func (s *Subscription) C() <-chan models.Message {
	return s.out
}

// Close detaches the subscriber and drops anything still queued.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()
		close(s.done)
		s.bus.remove(s)
	})
}

func (s *Subscription) enqueue(msg models.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
			case <-s.done:
			}
			continue
		}
		msg := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- msg:
		case <-s.done:
			return
		}
	}
}
