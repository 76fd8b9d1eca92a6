// Package memory models the simulated GPU memory hierarchy: global device
// memory, per-block shared memory, and per-thread register files. Global
// and shared memory accesses only update counters; the simulator never
// moves real bytes through them. Register files hold their values.
package memory

import (
	"sync"
	"sync/atomic"
)

// Memory sizing and latency defaults.
const (
	DefaultGlobalSize         = 8 << 30  // 8 GiB
	DefaultSharedSize         = 48 << 10 // 48 KiB
	DefaultRegistersPerThread = 255

	GlobalLatencyCycles = 400
	SharedLatencyCycles = 4
)

// GlobalMemory is the device-wide memory region (GDDR/HBM). Reads and
// writes are bounds-checked and counted; there is no backing byte array
// because the engine never inspects stored data.
type GlobalMemory struct {
	size    uint64
	latency uint64

	accesses     atomic.Uint64
	reads        atomic.Uint64
	writes       atomic.Uint64
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

// NewGlobalMemory creates a global memory region of the given size in
// bytes. A size of 0 uses DefaultGlobalSize.
func NewGlobalMemory(size uint64) *GlobalMemory {
	if size == 0 {
		size = DefaultGlobalSize
	}
	return &GlobalMemory{size: size, latency: GlobalLatencyCycles}
}

// Read models a read of bytes at address. It reports false when the access
// falls outside the region.
func (m *GlobalMemory) Read(address, bytes uint64) bool {
	if address+bytes > m.size {
		return false
	}
	m.accesses.Add(1)
	m.reads.Add(1)
	m.bytesRead.Add(bytes)
	return true
}

// Write models a write of bytes at address. It reports false when the
// access falls outside the region.
func (m *GlobalMemory) Write(address, bytes uint64) bool {
	if address+bytes > m.size {
		return false
	}
	m.accesses.Add(1)
	m.writes.Add(1)
	m.bytesWritten.Add(bytes)
	return true
}

func (m *GlobalMemory) Size() uint64    { return m.size }
func (m *GlobalMemory) Latency() uint64 { return m.latency }

func (m *GlobalMemory) AccessCount() uint64  { return m.accesses.Load() }
func (m *GlobalMemory) ReadCount() uint64    { return m.reads.Load() }
func (m *GlobalMemory) WriteCount() uint64   { return m.writes.Load() }
func (m *GlobalMemory) BytesRead() uint64    { return m.bytesRead.Load() }
func (m *GlobalMemory) BytesWritten() uint64 { return m.bytesWritten.Load() }

// Reset clears all access counters.
func (m *GlobalMemory) Reset() {
	m.accesses.Store(0)
	m.reads.Store(0)
	m.writes.Store(0)
	m.bytesRead.Store(0)
	m.bytesWritten.Store(0)
}

// SharedMemory is the scratchpad owned by a single thread block.
type SharedMemory struct {
	mu sync.Mutex

	size    uint64
	latency uint64
	data    []byte
	owner   uint32

	accesses atomic.Uint64
}

// NewSharedMemory creates a shared memory region of the given size in
// bytes. A size of 0 uses DefaultSharedSize.
func NewSharedMemory(size uint64) *SharedMemory {
	if size == 0 {
		size = DefaultSharedSize
	}
	return &SharedMemory{
		size:    size,
		latency: SharedLatencyCycles,
		data:    make([]byte, size),
	}
}

// Read models a read of bytes at address within the block's scratchpad.
func (m *SharedMemory) Read(address, bytes uint64) bool {
	if address+bytes > m.size {
		return false
	}
	m.accesses.Add(1)
	return true
}

// Write models a write of bytes at address within the block's scratchpad.
func (m *SharedMemory) Write(address, bytes uint64) bool {
	if address+bytes > m.size {
		return false
	}
	m.accesses.Add(1)
	return true
}

func (m *SharedMemory) Size() uint64        { return m.size }
func (m *SharedMemory) Latency() uint64     { return m.latency }
func (m *SharedMemory) AccessCount() uint64 { return m.accesses.Load() }

// SetOwner tags the region with the block that owns it.
func (m *SharedMemory) SetOwner(blockID uint32) { m.owner = blockID }

// Owner returns the owning block id.
func (m *SharedMemory) Owner() uint32 { return m.owner }

// Clear zeroes the scratchpad and its access counter.
func (m *SharedMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.data)
	m.accesses.Store(0)
}

// RegisterFile is the fixed-size vector of 32-bit registers owned by a
// single thread. It is only ever touched by the thread's warp, so no
// locking is needed.
type RegisterFile struct {
	registers []uint32
	owner     uint32
}

// NewRegisterFile creates a register file with n registers. n of 0 uses
// DefaultRegistersPerThread.
func NewRegisterFile(n int) *RegisterFile {
	if n <= 0 {
		n = DefaultRegistersPerThread
	}
	return &RegisterFile{registers: make([]uint32, n)}
}

// Read returns the value of register index. It reports false when the
// index is outside the file.
func (f *RegisterFile) Read(index int) (uint32, bool) {
	if index < 0 || index >= len(f.registers) {
		return 0, false
	}
	return f.registers[index], true
}

// Write stores value into register index. It reports false when the index
// is outside the file.
func (f *RegisterFile) Write(index int, value uint32) bool {
	if index < 0 || index >= len(f.registers) {
		return false
	}
	f.registers[index] = value
	return true
}

// NumRegisters returns the size of the file.
func (f *RegisterFile) NumRegisters() int { return len(f.registers) }

// SetOwner tags the file with the thread that owns it.
func (f *RegisterFile) SetOwner(threadID uint32) { f.owner = threadID }

// Owner returns the owning thread id.
func (f *RegisterFile) Owner() uint32 { return f.owner }

// Clear zeroes every register.
func (f *RegisterFile) Clear() { clear(f.registers) }

// Controller is the single publisher of the global memory handle. It is
// shared by the device and every compute unit; all counters are atomic.
type Controller struct {
	global *GlobalMemory

	memoryOps   atomic.Uint64
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
}

// NewController creates a controller owning a global memory region of
// globalSize bytes (0 means DefaultGlobalSize).
func NewController(globalSize uint64) *Controller {
	return &Controller{global: NewGlobalMemory(globalSize)}
}

// Global returns the controller's global memory.
func (c *Controller) Global() *GlobalMemory { return c.global }

// RecordMemoryOp counts one memory operation.
func (c *Controller) RecordMemoryOp() { c.memoryOps.Add(1) }

// RecordCacheHit counts one cache hit.
func (c *Controller) RecordCacheHit() { c.cacheHits.Add(1) }

// RecordCacheMiss counts one cache miss.
func (c *Controller) RecordCacheMiss() { c.cacheMisses.Add(1) }

// TotalMemoryOps returns the running memory operation count.
func (c *Controller) TotalMemoryOps() uint64 { return c.memoryOps.Load() }

// CacheHitRate returns hits/(hits+misses), or 0 when nothing has been
// recorded.
func (c *Controller) CacheHitRate() float64 {
	hits := c.cacheHits.Load()
	total := hits + c.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
