package workload

import (
	"fmt"
	"math"
)

// Factories for the common kernel shapes. The instruction and memory-op
// estimates feed shortest-job-first ordering and reporting; they are the
// contract, not physics.

// NewMatrixMultiply builds an MxNxK matrix multiply over 16x16 tiles.
func NewMatrixMultiply(m, n, k int) *Workload {
	config := KernelConfig{
		GridX: (m + 15) / 16, GridY: (n + 15) / 16, GridZ: 1,
		BlockX: 16, BlockY: 16, BlockZ: 1,
	}

	w := New(fmt.Sprintf("MatrixMultiply_%dx%dx%d", m, n, k), MatrixMultiply, config)

	// Each output element does K multiply-adds plus its operand traffic.
	w.SetEstimatedInstructions(uint64(m) * uint64(n) * uint64(k) * 2)
	w.SetEstimatedMemoryOps(uint64(m) * uint64(n) * uint64(k+2))
	return w
}

// NewConvolution builds a 3x3 convolution with one thread per output
// element over a BxCxHxW tensor.
func NewConvolution(batch, channels, height, width int) *Workload {
	outputs := batch * channels * height * width
	const threadsPerBlock = 256
	blocks := (outputs + threadsPerBlock - 1) / threadsPerBlock

	config := KernelConfig{
		GridX: blocks, GridY: 1, GridZ: 1,
		BlockX: threadsPerBlock, BlockY: 1, BlockZ: 1,
	}

	w := New(fmt.Sprintf("Convolution_%dx%dx%dx%d", batch, channels, height, width),
		Convolution, config)

	// 3x3 kernel: 9 multiply-adds per output.
	w.SetEstimatedInstructions(uint64(outputs) * 9 * 2)
	w.SetEstimatedMemoryOps(uint64(outputs) * 10)
	return w
}

// NewVectorAdd builds an element-wise vector addition of the given size.
func NewVectorAdd(size int) *Workload {
	const threadsPerBlock = 256
	blocks := (size + threadsPerBlock - 1) / threadsPerBlock

	config := KernelConfig{
		GridX: blocks, GridY: 1, GridZ: 1,
		BlockX: threadsPerBlock, BlockY: 1, BlockZ: 1,
	}

	w := New(fmt.Sprintf("VectorAdd_%d", size), VectorAdd, config)

	w.SetEstimatedInstructions(uint64(size) * 2) // 2 per element
	w.SetEstimatedMemoryOps(uint64(size) * 3)    // 2 reads, 1 write
	return w
}

// NewReduction builds a tree reduction of the given size.
func NewReduction(size int) *Workload {
	const threadsPerBlock = 256
	blocks := (size + threadsPerBlock - 1) / threadsPerBlock

	config := KernelConfig{
		GridX: blocks, GridY: 1, GridZ: 1,
		BlockX: threadsPerBlock, BlockY: 1, BlockZ: 1,
	}

	w := New(fmt.Sprintf("Reduction_%d", size), Reduction, config)

	steps := uint64(math.Log2(float64(size)))
	w.SetEstimatedInstructions(uint64(size) * steps)
	w.SetEstimatedMemoryOps(uint64(size) * 2)
	return w
}
