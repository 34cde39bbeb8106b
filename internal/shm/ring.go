// Package shm implements the local shared-memory ring: a bounded,
// lock-free, multi-producer multi-consumer queue of byte records used
// to hand order-book payloads to same-host consumers without going
// through the pub/sub bus.
//
// The ring is logically the cross-process shared memory region
// spec.md §9 describes; this implementation backs it with a
// process-local slice of atomic slots so a future upgrade to an actual
// mmap'd region (the original Rust source's stated TODO) only has to
// replace the slot storage, not the producer/consumer protocol.
package shm

import (
	"errors"
	"sync/atomic"
)

// Defaults per spec.md §4.B.
const (
	DefaultCapacity   = 1024
	DefaultMaxRecord  = 64 * 1024
)

// ErrFull is returned by Write when the ring has no free slot. The
// caller must not retry or block; the record is dropped.
var ErrFull = errors.New("shm: ring full")

// ErrTooLarge is returned by Write when data exceeds the configured
// per-record size cap.
var ErrTooLarge = errors.New("shm: record exceeds max size")

type slot struct {
	seq  atomic.Uint64
	data atomic.Pointer[[]byte]
}

// Ring is a bounded MPSC-safe (in fact MPMC-safe) lock-free queue of
// byte records, modeled on a Lamport/Vyukov-style ring buffer: each
// slot carries a sequence number that producers and consumers use to
// claim it via compare-and-swap, so no slot is ever overwritten while a
// consumer might still be reading it.
type Ring struct {
	name      string
	mask      uint64
	maxRecord int

	slots []slot

	head atomic.Uint64 // next slot index a consumer will claim
	tail atomic.Uint64 // next slot index a producer will claim

	dropped atomic.Uint64
}

// New creates a ring named name with the given slot capacity (rounded
// up to the next power of two) and per-record size cap. name is purely
// descriptive today; it becomes the shared-memory segment name if this
// ring is later backed by real shared memory.
func New(name string, capacity int, maxRecord int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxRecord <= 0 {
		maxRecord = DefaultMaxRecord
	}
	n := nextPow2(capacity)

	r := &Ring{
		name:      name,
		mask:      uint64(n - 1),
		maxRecord: maxRecord,
		slots:     make([]slot, n),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}
	return r
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Name returns the ring's logical name.
func (r *Ring) Name() string { return r.name }

// Dropped returns the count of writes refused because the ring was
// full, since creation.
func (r *Ring) Dropped() uint64 { return r.dropped.Load() }

// Write attempts to enqueue data without blocking. On a full ring it
// returns ErrFull and drops the record (drop-newest policy, per
// spec.md §4.B) rather than evicting an existing entry or blocking the
// producer.
func (r *Ring) Write(data []byte) error {
	if len(data) > r.maxRecord {
		return ErrTooLarge
	}

	rec := make([]byte, len(data))
	copy(rec, data)

	for {
		pos := r.tail.Load()
		s := &r.slots[pos&r.mask]
		seq := s.seq.Load()

		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if r.tail.CompareAndSwap(pos, pos+1) {
				s.data.Store(&rec)
				s.seq.Store(pos + 1)
				return nil
			}
		case diff < 0:
			// Slot still holds the value from one lap ago and no
			// consumer has claimed it yet: the ring is full.
			r.dropped.Add(1)
			return ErrFull
		default:
			// Another producer claimed this slot first; retry.
		}
	}
}

// Read attempts to dequeue the oldest record without blocking. ok is
// false when the ring is empty.
func (r *Ring) Read() (data []byte, ok bool) {
	for {
		pos := r.head.Load()
		s := &r.slots[pos&r.mask]
		seq := s.seq.Load()

		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if r.head.CompareAndSwap(pos, pos+1) {
				p := s.data.Load()
				s.seq.Store(pos + uint64(len(r.slots)))
				if p == nil {
					return nil, false
				}
				return *p, true
			}
		case diff < 0:
			// Nothing produced into this slot yet: the ring is empty.
			return nil, false
		default:
			// Another consumer claimed this slot first; retry.
		}
	}
}

// Len returns an instantaneous, possibly stale count of queued records.
// It is for observability only, never for correctness decisions.
func (r *Ring) Len() int {
	head := int64(r.head.Load())
	tail := int64(r.tail.Load())
	n := tail - head
	if n < 0 {
		n = 0
	}
	return int(n)
}

// Cap returns the ring's slot capacity.
func (r *Ring) Cap() int { return len(r.slots) }
