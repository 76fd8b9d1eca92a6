package simt

import (
	"math/bits"
	"testing"
)

func TestWarpCreation(t *testing.T) {
	t.Parallel()

	t.Run("full warp", func(t *testing.T) {
		w := NewWarp(0, 0, WarpSize)
		if w.NumThreads() != WarpSize {
			t.Fatalf("NumThreads = %d, want %d", w.NumThreads(), WarpSize)
		}
		if got := bits.OnesCount64(w.ActiveMask()); got != WarpSize {
			t.Fatalf("active mask popcount = %d, want %d", got, WarpSize)
		}
		if w.State() != StateReady {
			t.Fatalf("initial state = %v, want %v", w.State(), StateReady)
		}
	})

	t.Run("partial warp", func(t *testing.T) {
		w := NewWarp(1, 2, 5)
		if w.NumThreads() != 5 {
			t.Fatalf("NumThreads = %d, want 5", w.NumThreads())
		}
		if w.ActiveMask() != 0b11111 {
			t.Fatalf("active mask = %b, want 11111", w.ActiveMask())
		}
	})

	t.Run("thread ids follow the grid linearization", func(t *testing.T) {
		w := NewWarp(3, 2, 4)
		want := uint32(2*MaxThreadsPerBlock + 3*WarpSize)
		for i, th := range w.Threads() {
			if th.ID() != want+uint32(i) {
				t.Fatalf("thread %d id = %d, want %d", i, th.ID(), want+uint32(i))
			}
			if th.WarpID() != 3 || th.BlockID() != 2 {
				t.Fatalf("thread %d parents = (%d,%d), want (3,2)", i, th.WarpID(), th.BlockID())
			}
		}
	})
}

func TestWarpCounters(t *testing.T) {
	t.Parallel()
	w := NewWarp(0, 0, WarpSize)

	for i := 0; i < 3; i++ {
		w.RecordInstruction()
		w.AdvancePC()
	}
	w.RecordStall()

	if w.InstructionsExecuted() != 3 {
		t.Fatalf("InstructionsExecuted = %d, want 3", w.InstructionsExecuted())
	}
	if w.ProgramCounter() != 3 {
		t.Fatalf("ProgramCounter = %d, want 3", w.ProgramCounter())
	}
	if w.CyclesStalled() != 1 {
		t.Fatalf("CyclesStalled = %d, want 1", w.CyclesStalled())
	}
}

func TestThreadRegisters(t *testing.T) {
	t.Parallel()
	th := NewThread(9, 0, 0)
	regs := th.Registers()
	if regs == nil {
		t.Fatal("thread has no register file")
	}
	if regs.Owner() != 9 {
		t.Fatalf("register owner = %d, want 9", regs.Owner())
	}
}

func TestThreadBlockWarpSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		threads     int
		wantWarps   int
		lastThreads int
	}{
		{"single full warp", 32, 1, 32},
		{"uneven split", 100, 4, 4},
		{"max block", 1024, 32, 32},
		{"one thread", 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewThreadBlock(0, tt.threads)
			if b.NumWarps() != tt.wantWarps {
				t.Fatalf("NumWarps = %d, want %d", b.NumWarps(), tt.wantWarps)
			}
			if b.NumThreads() != tt.threads {
				t.Fatalf("NumThreads = %d, want %d", b.NumThreads(), tt.threads)
			}
			last := b.Warp(b.NumWarps() - 1)
			if last.NumThreads() != tt.lastThreads {
				t.Fatalf("last warp threads = %d, want %d", last.NumThreads(), tt.lastThreads)
			}
		})
	}
}

func TestThreadBlockAccessors(t *testing.T) {
	t.Parallel()
	b := NewThreadBlock(5, 64)

	if b.Warp(-1) != nil || b.Warp(2) != nil {
		t.Fatal("out-of-range Warp() returned a warp")
	}
	if b.SharedMemory() == nil {
		t.Fatal("block has no shared memory")
	}
	if b.SharedMemory().Owner() != 5 {
		t.Fatalf("shared memory owner = %d, want 5", b.SharedMemory().Owner())
	}

	b.SetGridPosition(1, 2, 3)
	x, y, z := b.GridPosition()
	if x != 1 || y != 2 || z != 3 {
		t.Fatalf("grid position = (%d,%d,%d), want (1,2,3)", x, y, z)
	}

	if b.Completed() {
		t.Fatal("new block already completed")
	}
	b.MarkCompleted()
	if !b.Completed() {
		t.Fatal("MarkCompleted did not stick")
	}
}
