package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"telemetry-hub/src/metrics"
	"telemetry-hub/src/models"
)

// -----------------------------------------------------------------------------
// Broadcaster is the single fan-out point: a fixed-capacity ring of accepted
// samples with one monotonically increasing sequence number per entry and an
// independent read cursor per subscriber. Publish never blocks; when the
// ring is full the oldest unread entry is evicted (drop-oldest). Subscribers
// that fall behind skip forward and account the loss on a gap counter.
//
// Within one Broadcaster, every non-lagging subscriber observes all accepted
// samples in publish order; a lagging subscriber observes a strict in-order
// subsequence.
// -----------------------------------------------------------------------------

var ErrClosed = errors.New("broadcaster closed")

type Broadcaster struct {
	mu       sync.Mutex
	ring     []models.Sample
	capacity uint64
	head     uint64 // seq of the oldest retained entry
	next     uint64 // seq assigned to the next published entry
	subs     map[*Subscriber]struct{}
	closed   chan struct{}
	isClosed bool
}

// -----------------------------------------------------------------------------

func NewBroadcaster(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = 500
	}
	return &Broadcaster{
		ring:     make([]models.Sample, capacity),
		capacity: uint64(capacity),
		subs:     make(map[*Subscriber]struct{}),
		closed:   make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Publish appends a sample to the ring, evicting the oldest entry when at
// capacity, and wakes waiting subscribers. Non-blocking for the publisher.
func (b *Broadcaster) Publish(s models.Sample) {
	b.mu.Lock()
	if b.isClosed {
		b.mu.Unlock()
		return
	}

	b.ring[b.next%b.capacity] = s
	b.next++
	if b.next-b.head > b.capacity {
		b.head++
		metrics.SamplesEvicted.Inc()
	}
	metrics.SamplesPublished.Inc()

	// Wake subscribers without blocking on any of them. The signal channel
	// has capacity 1; a subscriber that already has a pending signal needs
	// no second one.
	for sub := range b.subs {
		select {
		case sub.sig <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Subscribe attaches a new reader positioned at the current tail (it sees
// only samples published after this call).
func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		b:      b,
		cursor: b.next,
		sig:    make(chan struct{}, 1),
	}
	b.subs[sub] = struct{}{}
	return sub
}

// -----------------------------------------------------------------------------

// Unsubscribe detaches a reader. Silent to all other subscribers.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Close shuts the bus down; pending and future Next calls return ErrClosed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if !b.isClosed {
		b.isClosed = true
		close(b.closed)
	}
	b.mu.Unlock()
}

// -----------------------------------------------------------------------------

// SubscriberCount returns the number of attached readers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Published returns the total number of accepted samples.
func (b *Broadcaster) Published() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}

// -----------------------------------------------------------------------------
// Subscriber
// -----------------------------------------------------------------------------

// Subscriber is one read cursor over the shared ring. Not safe for
// concurrent Next calls; each session owns exactly one delivery loop.
type Subscriber struct {
	b      *Broadcaster
	cursor uint64
	sig    chan struct{}
	gaps   atomic.Uint64
}

// -----------------------------------------------------------------------------

// Next blocks until a sample is available, the context is cancelled, or the
// broadcaster closes. A lagging cursor jumps to the oldest retained entry
// and the skipped count is added to the gap counter.
func (s *Subscriber) Next(ctx context.Context) (models.Sample, error) {
	for {
		s.b.mu.Lock()

		if s.cursor < s.b.head {
			skipped := s.b.head - s.cursor
			s.gaps.Add(skipped)
			metrics.SubscriberGaps.Add(float64(skipped))
			s.cursor = s.b.head
		}

		if s.cursor < s.b.next {
			sample := s.b.ring[s.cursor%s.b.capacity]
			s.cursor++
			s.b.mu.Unlock()
			return sample, nil
		}

		closed := s.b.isClosed
		s.b.mu.Unlock()

		if closed {
			return nil, ErrClosed
		}

		select {
		case <-s.sig:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.b.closed:
			return nil, ErrClosed
		}
	}
}

// -----------------------------------------------------------------------------

// Gaps returns the cumulative number of samples this subscriber missed to
// drop-oldest eviction.
func (s *Subscriber) Gaps() uint64 {
	return s.gaps.Load()
}
