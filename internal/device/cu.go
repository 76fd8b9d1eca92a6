package device

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/memory"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/simt"
)

// Per-CU hardware limits.
const (
	MaxWarpsPerCU   = 64
	MaxThreadsPerCU = 2048
	MaxBlocksPerCU  = 16

	// instructionsPerBatch is how many instructions a fetched warp runs
	// before the CU re-evaluates it.
	instructionsPerBatch = 8

	// warpRetireInstructions is the cumulative instruction count at which
	// a warp retires.
	warpRetireInstructions = 1000

	// cuIdleSleep is how long the drive loop yields when no warp is ready.
	cuIdleSleep = 100 * time.Microsecond
)

// ComputeUnit hosts a bounded set of thread blocks and cycles through
// their ready warps. One goroutine drives it via Run; the dispatcher pokes
// it through AssignBlock and RemoveCompletedBlocks.
type ComputeUnit struct {
	id int

	mu           sync.Mutex
	activeBlocks []*simt.ThreadBlock

	warps *WarpScheduler

	maxWarps   int
	maxThreads int
	maxBlocks  int

	// blockCount/warpCount mirror the active-block totals so the
	// advisory admission peek stays off the lock.
	blockCount atomic.Int64
	warpCount  atomic.Int64

	state   atomic.Int32
	running atomic.Bool

	cycles        atomic.Uint64
	instructions  atomic.Uint64
	warpsExecuted atomic.Uint64
	idleCycles    atomic.Uint64
	stallCycles   atomic.Uint64

	mem *memory.Controller
}

// NewComputeUnit creates a compute unit sharing the given memory
// controller.
func NewComputeUnit(id int, mem *memory.Controller) *ComputeUnit {
	cu := &ComputeUnit{
		id:         id,
		warps:      NewWarpScheduler(MaxWarpsPerCU),
		maxWarps:   MaxWarpsPerCU,
		maxThreads: MaxThreadsPerCU,
		maxBlocks:  MaxBlocksPerCU,
		mem:        mem,
	}
	cu.state.Store(int32(simt.StateIdle))
	return cu
}

func (cu *ComputeUnit) ID() int          { return cu.id }
func (cu *ComputeUnit) State() simt.State { return simt.State(cu.state.Load()) }

// CanAcceptBlock is the advisory admission peek: block capacity and warp
// capacity both have to hold. AssignBlock re-tests under the lock.
func (cu *ComputeUnit) CanAcceptBlock(b *simt.ThreadBlock) bool {
	if b == nil {
		return false
	}
	if cu.blockCount.Load() >= int64(cu.maxBlocks) {
		return false
	}
	return cu.warpCount.Load()+int64(b.NumWarps()) <= int64(cu.maxWarps)
}

// AssignBlock takes ownership of a block and queues its warps. It
// re-checks capacity under the CU lock and reports false without side
// effects when the block no longer fits.
func (cu *ComputeUnit) AssignBlock(b *simt.ThreadBlock) bool {
	if b == nil {
		return false
	}

	cu.mu.Lock()
	defer cu.mu.Unlock()

	if len(cu.activeBlocks) >= cu.maxBlocks {
		return false
	}
	warps := 0
	for _, blk := range cu.activeBlocks {
		warps += blk.NumWarps()
	}
	if warps+b.NumWarps() > cu.maxWarps {
		return false
	}

	for _, w := range b.Warps() {
		cu.warps.AddWarp(w)
	}

	cu.activeBlocks = append(cu.activeBlocks, b)
	cu.blockCount.Store(int64(len(cu.activeBlocks)))
	cu.warpCount.Store(int64(warps + b.NumWarps()))
	cu.state.Store(int32(simt.StateRunning))
	return true
}

// RemoveCompletedBlocks drops retired blocks and returns the CU to Idle
// when none remain.
func (cu *ComputeUnit) RemoveCompletedBlocks() {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	kept := cu.activeBlocks[:0]
	warps := 0
	for _, b := range cu.activeBlocks {
		if b.Completed() {
			continue
		}
		kept = append(kept, b)
		warps += b.NumWarps()
	}
	for i := len(kept); i < len(cu.activeBlocks); i++ {
		cu.activeBlocks[i] = nil
	}
	cu.activeBlocks = kept
	cu.blockCount.Store(int64(len(cu.activeBlocks)))
	cu.warpCount.Store(int64(warps))

	if len(cu.activeBlocks) == 0 {
		cu.state.Store(int32(simt.StateIdle))
	}
}

// executeWarp runs one instruction batch against a warp, modeling the
// periodic memory traffic and the long stall at the batch head.
func (cu *ComputeUnit) executeWarp(w *simt.Warp, numInstructions int) {
	if w == nil {
		return
	}

	w.SetState(simt.StateRunning)

	for i := 0; i < numInstructions; i++ {
		w.RecordInstruction()
		w.AdvancePC()
		cu.instructions.Add(1)

		// Every fifth instruction touches memory; the batch-head access
		// misses and stalls the warp for latency/10 cycles.
		if i%5 == 0 {
			cu.mem.RecordMemoryOp()

			if i%10 == 0 {
				w.SetState(simt.StateMemoryStalled)
				w.RecordStall()
				cu.stallCycles.Add(1)
				cu.cycles.Add(cu.mem.Global().Latency() / 10)
				w.SetState(simt.StateRunning)
			}
		}
	}

	w.SetState(simt.StateReady)
	cu.warpsExecuted.Add(1)
}

// SimulateCycle advances the CU by one scheduling cycle: fetch a ready
// warp, run a batch, then retire or re-queue it.
func (cu *ComputeUnit) SimulateCycle() {
	cu.cycles.Add(1)

	w := cu.warps.NextWarp()
	if w == nil {
		cu.idleCycles.Add(1)
		return
	}

	cu.executeWarp(w, instructionsPerBatch)

	if w.InstructionsExecuted() >= warpRetireInstructions {
		w.SetState(simt.StateCompleted)
		cu.sweepCompletedBlocks()
	} else {
		cu.warps.AddWarp(w)
	}
}

// sweepCompletedBlocks marks any active block whose warps have all
// retired.
func (cu *ComputeUnit) sweepCompletedBlocks() {
	cu.mu.Lock()
	defer cu.mu.Unlock()

	for _, b := range cu.activeBlocks {
		done := true
		for _, w := range b.Warps() {
			if w.State() != simt.StateCompleted {
				done = false
				break
			}
		}
		if done {
			b.MarkCompleted()
		}
	}
}

// Run is the CU drive loop; it spins until Stop and yields briefly when
// there is nothing ready.
func (cu *ComputeUnit) Run() {
	cu.running.Store(true)
	cu.loop()
}

func (cu *ComputeUnit) loop() {
	for cu.running.Load() {
		if cu.blockCount.Load() > 0 && cu.warps.HasReadyWarps() {
			cu.SimulateCycle()
		} else {
			time.Sleep(cuIdleSleep)
		}
	}
}

// Stop makes the drive loop exit at its next check.
func (cu *ComputeUnit) Stop() { cu.running.Store(false) }

// IsRunning reports whether the drive loop is active.
func (cu *ComputeUnit) IsRunning() bool { return cu.running.Load() }

// IsIdle reports whether the CU holds no blocks and has gone idle.
func (cu *ComputeUnit) IsIdle() bool {
	return cu.blockCount.Load() == 0 && cu.State() == simt.StateIdle
}

// ActiveBlockCount returns the number of resident blocks.
func (cu *ComputeUnit) ActiveBlockCount() int { return int(cu.blockCount.Load()) }

// ActiveWarpCount returns the warp total across resident blocks.
func (cu *ComputeUnit) ActiveWarpCount() int { return int(cu.warpCount.Load()) }

// ActiveThreadCount returns the thread total across resident blocks.
func (cu *ComputeUnit) ActiveThreadCount() int {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	n := 0
	for _, b := range cu.activeBlocks {
		n += b.NumThreads()
	}
	return n
}

func (cu *ComputeUnit) CyclesExecuted() uint64       { return cu.cycles.Load() }
func (cu *ComputeUnit) InstructionsExecuted() uint64 { return cu.instructions.Load() }
func (cu *ComputeUnit) WarpsExecuted() uint64        { return cu.warpsExecuted.Load() }
func (cu *ComputeUnit) IdleCycles() uint64           { return cu.idleCycles.Load() }
func (cu *ComputeUnit) StallCycles() uint64          { return cu.stallCycles.Load() }

// Utilization returns the percentage of cycles spent with a warp
// executing, 0 when no cycles have run.
func (cu *ComputeUnit) Utilization() float64 {
	total := cu.cycles.Load()
	if total == 0 {
		return 0
	}
	active := total - cu.idleCycles.Load()
	return float64(active) / float64(total) * 100
}

// ResetMetrics zeroes the CU's performance counters.
func (cu *ComputeUnit) ResetMetrics() {
	cu.cycles.Store(0)
	cu.instructions.Store(0)
	cu.warpsExecuted.Store(0)
	cu.idleCycles.Store(0)
	cu.stallCycles.Store(0)
}
