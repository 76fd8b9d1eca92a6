// Package sched implements the device-level kernel schedulers. A scheduler
// keeps three ordered buckets (pending, running, completed) behind one
// mutex and picks the next pending kernel according to its policy.
package sched

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/workload"
)

// Algorithm selects a scheduling policy.
type Algorithm int

const (
	FIFO Algorithm = iota
	Priority
	RoundRobin
	ShortestJobFirst
)

func (a Algorithm) String() string {
	switch a {
	case FIFO:
		return "FIFO"
	case Priority:
		return "Priority"
	case RoundRobin:
		return "Round-Robin"
	case ShortestJobFirst:
		return "Shortest-Job-First"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a user-supplied name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "fifo":
		return FIFO, nil
	case "priority":
		return Priority, nil
	case "rr", "round-robin", "roundrobin":
		return RoundRobin, nil
	case "sjf", "shortest-job-first":
		return ShortestJobFirst, nil
	default:
		return FIFO, fmt.Errorf("unknown scheduling algorithm %q", s)
	}
}

// Scheduler orders pending kernels and tracks their lifecycle. All bucket
// mutation happens under a single mutex; HasPending is a lock-free hint
// that the dispatcher re-checks by calling NextWorkload.
type Scheduler interface {
	Name() string

	// AddWorkload appends a kernel to the pending bucket.
	AddWorkload(w *workload.Workload)

	// NextWorkload picks one pending kernel per the policy, moves it to
	// running, and returns it, or returns nil when nothing is pending.
	NextWorkload() *workload.Workload

	// HasPending reports whether the pending bucket looked non-empty at
	// some recent instant.
	HasPending() bool

	PendingCount() int
	RunningCount() int
	CompletedCount() int

	// MarkRunning moves a kernel from pending to running. It is a no-op
	// when the kernel is not pending.
	MarkRunning(w *workload.Workload)

	// MarkCompleted moves a kernel from running to completed. It is a
	// no-op when the kernel is not running.
	MarkCompleted(w *workload.Workload)

	// CompletedWorkloads returns the completed bucket in completion order.
	CompletedWorkloads() []*workload.Workload
}

// New creates a scheduler for the given algorithm. Unknown values fall
// back to FIFO, matching the reference behavior.
func New(algorithm Algorithm) Scheduler {
	switch algorithm {
	case Priority:
		return &priorityScheduler{}
	case RoundRobin:
		return &roundRobinScheduler{}
	case ShortestJobFirst:
		return &sjfScheduler{}
	case FIFO:
		return &fifoScheduler{}
	default:
		return &fifoScheduler{}
	}
}

// buckets is the shared bucket state embedded by every policy.
type buckets struct {
	mu        sync.Mutex
	pending   []*workload.Workload
	running   []*workload.Workload
	completed []*workload.Workload

	// pendingHint mirrors len(pending) so HasPending stays off the lock.
	pendingHint atomic.Int64
}

func (b *buckets) AddWorkload(w *workload.Workload) {
	if w == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, w)
	b.pendingHint.Store(int64(len(b.pending)))
}

func (b *buckets) HasPending() bool { return b.pendingHint.Load() > 0 }

func (b *buckets) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *buckets) RunningCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.running)
}

func (b *buckets) CompletedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.completed)
}

func (b *buckets) MarkRunning(w *workload.Workload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.pending {
		if p == w {
			b.removePendingLocked(i)
			b.running = append(b.running, w)
			return
		}
	}
}

func (b *buckets) MarkCompleted(w *workload.Workload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.running {
		if r == w {
			b.running = append(b.running[:i], b.running[i+1:]...)
			b.completed = append(b.completed, w)
			return
		}
	}
}

func (b *buckets) CompletedWorkloads() []*workload.Workload {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*workload.Workload, len(b.completed))
	copy(out, b.completed)
	return out
}

// takeLocked moves pending[i] to running and returns it. Callers hold the
// mutex.
func (b *buckets) takeLocked(i int) *workload.Workload {
	w := b.pending[i]
	b.removePendingLocked(i)
	b.running = append(b.running, w)
	return w
}

func (b *buckets) removePendingLocked(i int) {
	b.pending = append(b.pending[:i], b.pending[i+1:]...)
	b.pendingHint.Store(int64(len(b.pending)))
}

// fifoScheduler dispatches kernels in submission order.
type fifoScheduler struct{ buckets }

func (s *fifoScheduler) Name() string { return "FIFO" }

func (s *fifoScheduler) NextWorkload() *workload.Workload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	return s.takeLocked(0)
}

// priorityScheduler dispatches the highest-priority pending kernel; ties
// go to the earliest submitted.
type priorityScheduler struct{ buckets }

func (s *priorityScheduler) Name() string { return "Priority" }

func (s *priorityScheduler) NextWorkload() *workload.Workload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	best := 0
	for i, w := range s.pending {
		if w.Priority() > s.pending[best].Priority() {
			best = i
		}
	}
	return s.takeLocked(best)
}

// roundRobinScheduler cycles a cursor over the pending list. Removal
// shrinks the list under the cursor: after a pull the cursor chases the
// slot past the drained one, pinning to the tail instead of wrapping when
// it runs off the end. With kernels A..D submitted in order this yields
// the A, C, D, B rotation.
type roundRobinScheduler struct {
	buckets
	cursor int
}

func (s *roundRobinScheduler) Name() string { return "Round-Robin" }

func (s *roundRobinScheduler) NextWorkload() *workload.Workload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	i := s.cursor % len(s.pending)
	w := s.takeLocked(i)

	s.cursor = i + 1
	if rem := len(s.pending); s.cursor >= rem {
		if rem == 0 {
			s.cursor = 0
		} else {
			s.cursor = rem - 1
		}
	}
	return w
}

// sjfScheduler dispatches the pending kernel with the fewest estimated
// instructions; ties go to the earliest submitted.
type sjfScheduler struct{ buckets }

func (s *sjfScheduler) Name() string { return "Shortest-Job-First" }

func (s *sjfScheduler) NextWorkload() *workload.Workload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	best := 0
	for i, w := range s.pending {
		if w.EstimatedInstructions() < s.pending[best].EstimatedInstructions() {
			best = i
		}
	}
	return s.takeLocked(best)
}
