package device

import (
	"testing"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/simt"
)

func TestWarpSchedulerFIFO(t *testing.T) {
	t.Parallel()
	s := NewWarpScheduler(4)

	warps := []*simt.Warp{
		simt.NewWarp(0, 0, 32),
		simt.NewWarp(1, 0, 32),
		simt.NewWarp(2, 0, 32),
	}
	for _, w := range warps {
		if !s.AddWarp(w) {
			t.Fatalf("AddWarp(%d) failed", w.ID())
		}
	}

	if s.QueueSize() != 3 {
		t.Fatalf("QueueSize = %d, want 3", s.QueueSize())
	}
	if !s.HasReadyWarps() {
		t.Fatal("HasReadyWarps false with queued warps")
	}

	for _, want := range warps {
		if got := s.NextWarp(); got != want {
			t.Fatalf("NextWarp = %d, want %d", got.ID(), want.ID())
		}
	}
	if s.NextWarp() != nil {
		t.Fatal("empty queue handed out a warp")
	}
	if s.HasReadyWarps() {
		t.Fatal("HasReadyWarps true on empty queue")
	}
}

func TestWarpSchedulerCapacity(t *testing.T) {
	t.Parallel()
	s := NewWarpScheduler(2)

	if !s.AddWarp(simt.NewWarp(0, 0, 32)) || !s.AddWarp(simt.NewWarp(1, 0, 32)) {
		t.Fatal("adds under capacity failed")
	}
	if s.AddWarp(simt.NewWarp(2, 0, 32)) {
		t.Fatal("add over capacity succeeded")
	}
	if s.QueueSize() != 2 {
		t.Fatalf("QueueSize = %d, want 2", s.QueueSize())
	}
}

func TestWarpSchedulerRejectsNotReady(t *testing.T) {
	t.Parallel()
	s := NewWarpScheduler(4)

	w := simt.NewWarp(0, 0, 32)
	w.SetState(simt.StateRunning)
	if s.AddWarp(w) {
		t.Fatal("running warp was queued")
	}

	w.SetState(simt.StateCompleted)
	if s.AddWarp(w) {
		t.Fatal("completed warp was queued")
	}

	if s.AddWarp(nil) {
		t.Fatal("nil warp was queued")
	}

	w.SetState(simt.StateReady)
	if !s.AddWarp(w) {
		t.Fatal("ready warp was rejected")
	}
}
