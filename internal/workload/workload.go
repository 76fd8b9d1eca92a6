// Package workload defines kernels: named units of work carrying a launch
// grid, a priority, instruction/memory estimates, and the thread blocks
// the dispatcher drains into compute units.
package workload

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/simt"
)

// Kind tags the computation a kernel models. The ordinal is part of the
// CSV export format.
type Kind int

const (
	MatrixMultiply Kind = iota
	Convolution
	VectorAdd
	Reduction
	Custom
)

func (k Kind) String() string {
	switch k {
	case MatrixMultiply:
		return "matrix-multiply"
	case Convolution:
		return "convolution"
	case VectorAdd:
		return "vector-add"
	case Reduction:
		return "reduction"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// KernelConfig is the launch shape of a kernel, like CUDA's pair of dim3
// values.
type KernelConfig struct {
	GridX, GridY, GridZ    int
	BlockX, BlockY, BlockZ int
}

// TotalBlocks returns the number of blocks in the launch grid.
func (c KernelConfig) TotalBlocks() int { return c.GridX * c.GridY * c.GridZ }

// ThreadsPerBlock returns the number of threads in each block.
func (c KernelConfig) ThreadsPerBlock() int { return c.BlockX * c.BlockY * c.BlockZ }

// TotalThreads returns the number of threads across the whole grid.
func (c KernelConfig) TotalThreads() int { return c.TotalBlocks() * c.ThreadsPerBlock() }

// Workload is a kernel submitted to the device. The scheduler holds it in
// its buckets while the dispatcher drains its blocks; the mutex guards the
// block list and timing fields against that overlap.
type Workload struct {
	id     uuid.UUID
	name   string
	kind   Kind
	config KernelConfig

	mu              sync.Mutex
	priority        int
	estInstructions uint64
	estMemoryOps    uint64
	blocks          []*simt.ThreadBlock
	startTime       time.Time
	endTime         time.Time
	completed       bool
}

// New creates a workload with the given name, kind, and launch shape. Each
// workload gets a unique submission id.
func New(name string, kind Kind, config KernelConfig) *Workload {
	return &Workload{
		id:     uuid.New(),
		name:   name,
		kind:   kind,
		config: config,
	}
}

func (w *Workload) ID() uuid.UUID        { return w.id }
func (w *Workload) Name() string         { return w.name }
func (w *Workload) Kind() Kind           { return w.kind }
func (w *Workload) Config() KernelConfig { return w.config }

func (w *Workload) Priority() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.priority
}

// SetPriority sets the scheduling priority; higher values are more urgent.
func (w *Workload) SetPriority(p int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.priority = p
}

func (w *Workload) EstimatedInstructions() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.estInstructions
}

func (w *Workload) SetEstimatedInstructions(n uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.estInstructions = n
}

func (w *Workload) EstimatedMemoryOps() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.estMemoryOps
}

func (w *Workload) SetEstimatedMemoryOps(n uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.estMemoryOps = n
}

// GenerateThreadBlocks materializes the launch grid into thread blocks.
// It is idempotent: any previously generated blocks are discarded. Block i
// sits at grid position (i mod gx, (i/gx) mod gy, i/(gx*gy)).
func (w *Workload) GenerateThreadBlocks() {
	w.mu.Lock()
	defer w.mu.Unlock()

	total := w.config.TotalBlocks()
	threadsPerBlock := w.config.ThreadsPerBlock()

	w.blocks = make([]*simt.ThreadBlock, 0, total)
	for i := 0; i < total; i++ {
		block := simt.NewThreadBlock(uint32(i), threadsPerBlock)

		gridXY := w.config.GridX * w.config.GridY
		z := i / gridXY
		rem := i % gridXY
		y := rem / w.config.GridX
		x := rem % w.config.GridX
		block.SetGridPosition(x, y, z)

		w.blocks = append(w.blocks, block)
	}
}

// NextBlock removes and returns the last remaining block, or nil when the
// workload is drained. Sibling dispatch order is not observable, so the
// cheap end-of-slice pop is fine.
func (w *Workload) NextBlock() *simt.ThreadBlock {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.blocks) == 0 {
		return nil
	}
	block := w.blocks[len(w.blocks)-1]
	w.blocks[len(w.blocks)-1] = nil
	w.blocks = w.blocks[:len(w.blocks)-1]
	return block
}

// HasMoreBlocks reports whether any blocks remain to dispatch.
func (w *Workload) HasMoreBlocks() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.blocks) > 0
}

// RemainingBlocks returns the number of blocks not yet dispatched.
func (w *Workload) RemainingBlocks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.blocks)
}

// Start records the dispatch timestamp.
func (w *Workload) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.startTime = time.Now()
}

// Complete records the completion timestamp and marks the workload done.
func (w *Workload) Complete() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.endTime = time.Now()
	w.completed = true
}

// Completed reports whether the workload has finished.
func (w *Workload) Completed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.completed
}

// ExecutionTime returns the wall time between Start and Complete in
// milliseconds, or 0 while the workload is still in flight.
func (w *Workload) ExecutionTime() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.completed {
		return 0
	}
	return float64(w.endTime.Sub(w.startTime).Microseconds()) / 1000.0
}

func (w *Workload) String() string {
	return fmt.Sprintf("%s (%d blocks, %d threads)",
		w.name, w.config.TotalBlocks(), w.config.TotalThreads())
}
