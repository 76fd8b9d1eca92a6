package device

import (
	"sync"
	"sync/atomic"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/simt"
)

// WarpScheduler is the bounded FIFO of ready warps local to one compute
// unit. A warp being executed is not in the queue; it is re-added after
// its batch if it has work left.
type WarpScheduler struct {
	mu       sync.Mutex
	queue    []*simt.Warp
	maxWarps int

	// size mirrors len(queue) so HasReadyWarps stays off the lock.
	size atomic.Int64
}

// NewWarpScheduler creates a queue bounded at maxWarps entries.
func NewWarpScheduler(maxWarps int) *WarpScheduler {
	if maxWarps <= 0 {
		maxWarps = MaxWarpsPerCU
	}
	return &WarpScheduler{maxWarps: maxWarps}
}

// AddWarp appends a warp to the ready queue. It reports false when the
// queue is full or the warp is not in the Ready state.
func (s *WarpScheduler) AddWarp(w *simt.Warp) bool {
	if w == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) >= s.maxWarps {
		return false
	}
	if w.State() != simt.StateReady {
		return false
	}
	s.queue = append(s.queue, w)
	s.size.Store(int64(len(s.queue)))
	return true
}

// NextWarp pops the head of the ready queue, or returns nil when the
// queue is empty.
func (s *WarpScheduler) NextWarp() *simt.Warp {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	w := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.size.Store(int64(len(s.queue)))
	return w
}

// HasReadyWarps reports whether the queue looked non-empty at some recent
// instant.
func (s *WarpScheduler) HasReadyWarps() bool { return s.size.Load() > 0 }

// QueueSize returns the number of queued warps.
func (s *WarpScheduler) QueueSize() int { return int(s.size.Load()) }
