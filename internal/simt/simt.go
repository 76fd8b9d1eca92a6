// Package simt holds the SIMT execution hierarchy: threads grouped into
// warps that advance in lockstep, warps grouped into thread blocks that
// share a scratchpad and a grid position.
package simt

import (
	"sync/atomic"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/memory"
)

// Hardware-model constants.
const (
	WarpSize           = 32
	MaxThreadsPerBlock = 1024
	MaxBlocksPerGrid   = 65535
)

// State is the execution state of a thread, warp, or compute unit.
type State int32

const (
	StateIdle State = iota
	StateReady
	StateRunning
	StateMemoryStalled
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateMemoryStalled:
		return "memory-stalled"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Thread is a single simulated GPU thread. It owns its register file and
// is identified by its position in the warp/block hierarchy.
type Thread struct {
	id      uint32
	warpID  uint32
	blockID uint32
	state   State
	regs    *memory.RegisterFile
}

// NewThread creates a thread in the Ready state with a default register
// file.
func NewThread(id, warpID, blockID uint32) *Thread {
	regs := memory.NewRegisterFile(memory.DefaultRegistersPerThread)
	regs.SetOwner(id)
	return &Thread{
		id:      id,
		warpID:  warpID,
		blockID: blockID,
		state:   StateReady,
		regs:    regs,
	}
}

func (t *Thread) ID() uint32      { return t.id }
func (t *Thread) WarpID() uint32  { return t.warpID }
func (t *Thread) BlockID() uint32 { return t.blockID }

func (t *Thread) State() State         { return t.state }
func (t *Thread) SetState(s State)     { t.state = s }
func (t *Thread) Registers() *memory.RegisterFile { return t.regs }

// Warp is a group of up to WarpSize threads executing in lockstep. Its
// counters are atomic because the owning compute unit and metric readers
// observe them concurrently.
type Warp struct {
	id      uint32
	blockID uint32
	threads []*Thread

	activeMask uint64

	state        atomic.Int32
	pc           atomic.Uint64
	instructions atomic.Uint64
	stalls       atomic.Uint64
}

// NewWarp creates a warp with numThreads threads, all initially active.
// Thread ids follow the block/warp linearization of the launch grid.
func NewWarp(id, blockID uint32, numThreads int) *Warp {
	if numThreads <= 0 || numThreads > WarpSize {
		numThreads = WarpSize
	}
	w := &Warp{
		id:         id,
		blockID:    blockID,
		activeMask: (1 << numThreads) - 1,
	}
	w.state.Store(int32(StateReady))
	w.threads = make([]*Thread, 0, numThreads)
	for i := 0; i < numThreads; i++ {
		tid := blockID*MaxThreadsPerBlock + id*WarpSize + uint32(i)
		w.threads = append(w.threads, NewThread(tid, id, blockID))
	}
	return w
}

func (w *Warp) ID() uint32         { return w.id }
func (w *Warp) BlockID() uint32    { return w.blockID }
func (w *Warp) NumThreads() int    { return len(w.threads) }
func (w *Warp) Threads() []*Thread { return w.threads }

func (w *Warp) ActiveMask() uint64        { return w.activeMask }
func (w *Warp) SetActiveMask(mask uint64) { w.activeMask = mask }

func (w *Warp) State() State     { return State(w.state.Load()) }
func (w *Warp) SetState(s State) { w.state.Store(int32(s)) }

// ProgramCounter returns the warp's program counter. It only ever moves
// forward.
func (w *Warp) ProgramCounter() uint64 { return w.pc.Load() }

// AdvancePC moves the program counter forward by one instruction.
func (w *Warp) AdvancePC() { w.pc.Add(1) }

// RecordInstruction counts one retired instruction.
func (w *Warp) RecordInstruction() { w.instructions.Add(1) }

// RecordStall counts one stalled cycle.
func (w *Warp) RecordStall() { w.stalls.Add(1) }

func (w *Warp) InstructionsExecuted() uint64 { return w.instructions.Load() }
func (w *Warp) CyclesStalled() uint64        { return w.stalls.Load() }

// ThreadBlock is a collection of warps sharing one scratchpad and one
// grid position. A block belongs to at most one compute unit at a time.
type ThreadBlock struct {
	id     uint32
	warps  []*Warp
	shared *memory.SharedMemory

	gridX, gridY, gridZ int

	completed atomic.Bool
}

// NewThreadBlock creates a block with numThreads threads split across
// ceil(numThreads/WarpSize) warps; the last warp may be partial.
func NewThreadBlock(id uint32, numThreads int) *ThreadBlock {
	shared := memory.NewSharedMemory(memory.DefaultSharedSize)
	shared.SetOwner(id)

	b := &ThreadBlock{id: id, shared: shared}

	numWarps := (numThreads + WarpSize - 1) / WarpSize
	b.warps = make([]*Warp, 0, numWarps)
	for i := 0; i < numWarps; i++ {
		threadsInWarp := min(WarpSize, numThreads-i*WarpSize)
		b.warps = append(b.warps, NewWarp(uint32(i), id, threadsInWarp))
	}
	return b
}

func (b *ThreadBlock) ID() uint32    { return b.id }
func (b *ThreadBlock) NumWarps() int { return len(b.warps) }
func (b *ThreadBlock) Warps() []*Warp { return b.warps }

// Warp returns the warp at index, or nil when index is out of range.
func (b *ThreadBlock) Warp(index int) *Warp {
	if index < 0 || index >= len(b.warps) {
		return nil
	}
	return b.warps[index]
}

// NumThreads returns the number of threads across all warps.
func (b *ThreadBlock) NumThreads() int {
	n := 0
	for _, w := range b.warps {
		n += w.NumThreads()
	}
	return n
}

// SharedMemory returns the block's scratchpad.
func (b *ThreadBlock) SharedMemory() *memory.SharedMemory { return b.shared }

// SetGridPosition records the block's (x, y, z) position in the launch
// grid.
func (b *ThreadBlock) SetGridPosition(x, y, z int) {
	b.gridX, b.gridY, b.gridZ = x, y, z
}

// GridPosition returns the block's (x, y, z) position in the launch grid.
func (b *ThreadBlock) GridPosition() (x, y, z int) {
	return b.gridX, b.gridY, b.gridZ
}

// Completed reports whether the block has retired. The flag is write-once.
func (b *ThreadBlock) Completed() bool { return b.completed.Load() }

// MarkCompleted retires the block. Callers only do this once every warp is
// in StateCompleted.
func (b *ThreadBlock) MarkCompleted() { b.completed.Store(true) }
