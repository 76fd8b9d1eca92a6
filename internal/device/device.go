// Package device assembles the simulated GPU: an array of compute units
// sharing one memory controller, a pluggable kernel scheduler, and the
// dispatcher that drains kernels into the array.
package device

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/logger"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/memory"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/metrics"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/sched"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/workload"
)

// Dispatcher and wait-loop polling quanta.
const (
	dispatcherIdleSleep = 10 * time.Millisecond
	admissionRetrySleep = time.Millisecond
	drainPollSleep      = 10 * time.Millisecond
	completionPollSleep = 100 * time.Millisecond
)

// Config describes the simulated device.
type Config struct {
	NumComputeUnits      int    `yaml:"num_compute_units"`
	WarpsPerCU           int    `yaml:"warps_per_cu"`
	ThreadsPerWarp       int    `yaml:"threads_per_warp"`
	MaxBlocksPerCU       int    `yaml:"max_blocks_per_cu"`
	GlobalMemorySize     uint64 `yaml:"global_memory_size"`
	SharedMemoryPerBlock uint64 `yaml:"shared_memory_per_block"`
	DeviceName           string `yaml:"device_name"`
}

// DefaultConfig returns a profile resembling an RTX 3080.
func DefaultConfig() Config {
	return Config{
		NumComputeUnits:      68,
		WarpsPerCU:           64,
		ThreadsPerWarp:       32,
		MaxBlocksPerCU:       16,
		GlobalMemorySize:     10 << 30,
		SharedMemoryPerBlock: 48 << 10,
		DeviceName:           "GPU Simulator - RTX 3080 Profile",
	}
}

// Device is the simulated GPU. One dispatcher goroutine pulls kernels
// from the scheduler and hands their blocks to the compute units, each of
// which is driven by its own goroutine.
type Device struct {
	config Config
	log    logger.Logger

	cus []*ComputeUnit
	mem *memory.Controller

	// mu guards scheduler installation only; it is never held while
	// calling into the scheduler or a CU.
	mu        sync.Mutex
	scheduler sched.Scheduler

	analyzer *metrics.Analyzer

	running   atomic.Bool
	simActive atomic.Bool
	wg        sync.WaitGroup

	// registry keeps every submitted workload by submission id until
	// Reset.
	regMu    sync.Mutex
	registry map[uuid.UUID]*workload.Workload

	drainLog rate.Sometimes
}

// New creates a device with the given configuration. Zero-valued fields
// fall back to DefaultConfig.
func New(config Config) *Device {
	def := DefaultConfig()
	if config.NumComputeUnits <= 0 {
		config.NumComputeUnits = def.NumComputeUnits
	}
	if config.WarpsPerCU <= 0 {
		config.WarpsPerCU = def.WarpsPerCU
	}
	if config.ThreadsPerWarp <= 0 {
		config.ThreadsPerWarp = def.ThreadsPerWarp
	}
	if config.MaxBlocksPerCU <= 0 {
		config.MaxBlocksPerCU = def.MaxBlocksPerCU
	}
	if config.GlobalMemorySize == 0 {
		config.GlobalMemorySize = def.GlobalMemorySize
	}
	if config.SharedMemoryPerBlock == 0 {
		config.SharedMemoryPerBlock = def.SharedMemoryPerBlock
	}
	if config.DeviceName == "" {
		config.DeviceName = def.DeviceName
	}

	d := &Device{
		config:    config,
		log:       logger.Default(),
		mem:       memory.NewController(config.GlobalMemorySize),
		scheduler: sched.New(sched.FIFO),
		analyzer:  metrics.NewAnalyzer(),
		registry:  make(map[uuid.UUID]*workload.Workload),
		drainLog:  rate.Sometimes{Interval: time.Second},
	}

	d.cus = make([]*ComputeUnit, 0, config.NumComputeUnits)
	for i := 0; i < config.NumComputeUnits; i++ {
		d.cus = append(d.cus, NewComputeUnit(i, d.mem))
	}

	d.log.Debug("initialized compute units", "count", config.NumComputeUnits)
	return d
}

// SetLogger replaces the device logger. Call before Start.
func (d *Device) SetLogger(log logger.Logger) {
	if log != nil {
		d.log = log
	}
}

// Config returns the device configuration.
func (d *Device) Config() Config { return d.config }

// SetScheduler installs a scheduling policy. Swap before submitting
// kernels; kernels already queued on the old scheduler stay there.
func (d *Device) SetScheduler(s sched.Scheduler) {
	if s == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheduler = s
}

// Scheduler returns the installed scheduling policy.
func (d *Device) Scheduler() sched.Scheduler {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheduler
}

// SubmitWorkload materializes a kernel's blocks and queues it. Nil and
// zero-block kernels are dropped.
func (d *Device) SubmitWorkload(w *workload.Workload) {
	if w == nil {
		d.log.Warn("ignoring nil workload submission")
		return
	}
	if w.Config().TotalBlocks() == 0 {
		d.log.Warn("ignoring workload with empty grid", "workload", w.Name())
		return
	}

	w.GenerateThreadBlocks()

	d.regMu.Lock()
	d.registry[w.ID()] = w
	d.regMu.Unlock()

	d.Scheduler().AddWorkload(w)

	d.log.Info("submitted workload",
		"workload", w.Name(),
		"blocks", w.Config().TotalBlocks(),
		"threads", w.Config().TotalThreads())
}

// Workload looks up a submitted kernel by submission id.
func (d *Device) Workload(id uuid.UUID) (*workload.Workload, bool) {
	d.regMu.Lock()
	defer d.regMu.Unlock()
	w, ok := d.registry[id]
	return w, ok
}

// ExecuteWorkloads starts the simulation. It is a no-op with a warning
// when the device is already running.
func (d *Device) ExecuteWorkloads() {
	if d.running.Load() {
		d.log.Warn("device is already running")
		return
	}
	d.Start()
}

// Start launches the per-CU drive goroutines and the dispatcher.
func (d *Device) Start() {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	d.simActive.Store(true)
	d.analyzer.StartSimulation()

	for _, cu := range d.cus {
		// Flip the flag here so a Stop racing the goroutine launch cannot
		// be overwritten by a late store inside the CU.
		cu.running.Store(true)
		d.wg.Add(1)
		go func(cu *ComputeUnit) {
			defer d.wg.Done()
			cu.loop()
		}(cu)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch()
	}()

	d.log.Info("device started",
		"device", d.config.DeviceName,
		"compute_units", d.config.NumComputeUnits)
}

// Stop cooperatively cancels the dispatcher and every CU, joins them, and
// closes out the analyzer's device record.
func (d *Device) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}

	for _, cu := range d.cus {
		cu.Stop()
	}
	d.wg.Wait()

	if d.simActive.CompareAndSwap(true, false) {
		d.analyzer.EndSimulation()
		d.analyzer.RecordDevice(d)
	}

	d.log.Info("device stopped")
}

// IsRunning reports whether the simulation is active.
func (d *Device) IsRunning() bool { return d.running.Load() }

// WaitForCompletion blocks until both the pending and running buckets
// drain, then stops the device.
func (d *Device) WaitForCompletion() {
	for {
		s := d.Scheduler()
		if !s.HasPending() && s.RunningCount() == 0 {
			break
		}
		time.Sleep(completionPollSleep)
	}
	d.Stop()
}

// dispatch is the dispatcher loop: pull one kernel per policy, drain its
// blocks into the CU array, wait for the array to go idle, record it.
func (d *Device) dispatch() {
	for d.running.Load() {
		s := d.Scheduler()
		if !s.HasPending() {
			time.Sleep(dispatcherIdleSleep)
			continue
		}

		w := s.NextWorkload()
		if w == nil {
			continue
		}

		d.log.Info("starting workload", "workload", w.Name())
		w.Start()

		d.drainBlocks(w)
		d.awaitIdle()

		w.Complete()
		s.MarkCompleted(w)

		d.log.Info("completed workload",
			"workload", w.Name(),
			"ms", fmt.Sprintf("%.2f", w.ExecutionTime()))

		d.analyzer.RecordWorkload(w, d)
	}
}

// drainBlocks hands every block of w to the first CU that admits it,
// retrying until capacity frees up.
func (d *Device) drainBlocks(w *workload.Workload) {
	for w.HasMoreBlocks() {
		b := w.NextBlock()
		if b == nil {
			break
		}

		assigned := false
		for !assigned && d.running.Load() {
			for _, cu := range d.cus {
				if !cu.CanAcceptBlock(b) {
					continue
				}
				if cu.AssignBlock(b) {
					assigned = true
					break
				}
			}

			if !assigned {
				time.Sleep(admissionRetrySleep)
				for _, cu := range d.cus {
					cu.RemoveCompletedBlocks()
				}
				d.drainLog.Do(func() {
					d.log.Debug("waiting for compute unit capacity",
						"workload", w.Name(),
						"remaining_blocks", w.RemainingBlocks())
				})
			}
		}
	}
}

// awaitIdle polls until every CU has drained its completed blocks and
// gone idle.
func (d *Device) awaitIdle() {
	for d.running.Load() {
		allIdle := true
		for _, cu := range d.cus {
			cu.RemoveCompletedBlocks()
			if !cu.IsIdle() {
				allIdle = false
			}
		}
		if allIdle {
			return
		}
		time.Sleep(drainPollSleep)
	}
}

// NumComputeUnits returns the size of the CU array.
func (d *Device) NumComputeUnits() int { return len(d.cus) }

// ComputeUnits returns the CU array.
func (d *Device) ComputeUnits() []*ComputeUnit { return d.cus }

// MemoryController returns the shared memory controller.
func (d *Device) MemoryController() *memory.Controller { return d.mem }

// Analyzer returns the device's performance analyzer.
func (d *Device) Analyzer() *metrics.Analyzer { return d.analyzer }

// TotalActiveBlocks sums resident blocks across CUs.
func (d *Device) TotalActiveBlocks() int {
	total := 0
	for _, cu := range d.cus {
		total += cu.ActiveBlockCount()
	}
	return total
}

// TotalActiveWarps sums resident warps across CUs.
func (d *Device) TotalActiveWarps() int {
	total := 0
	for _, cu := range d.cus {
		total += cu.ActiveWarpCount()
	}
	return total
}

// AverageUtilization returns the mean CU utilization percentage.
func (d *Device) AverageUtilization() float64 {
	if len(d.cus) == 0 {
		return 0
	}
	var total float64
	for _, cu := range d.cus {
		total += cu.Utilization()
	}
	return total / float64(len(d.cus))
}

// CUSamples implements metrics.DeviceView.
func (d *Device) CUSamples() []metrics.CUSample {
	samples := make([]metrics.CUSample, 0, len(d.cus))
	for _, cu := range d.cus {
		samples = append(samples, metrics.CUSample{
			Instructions: cu.InstructionsExecuted(),
			Cycles:       cu.CyclesExecuted(),
			Utilization:  cu.Utilization(),
		})
	}
	return samples
}

// TotalMemoryOps implements metrics.DeviceView.
func (d *Device) TotalMemoryOps() uint64 { return d.mem.TotalMemoryOps() }

// PrintInfo writes the device information block.
func (d *Device) PrintInfo(w io.Writer) {
	fmt.Fprintf(w, "\n========================================\n")
	fmt.Fprintf(w, "  GPU DEVICE INFORMATION\n")
	fmt.Fprintf(w, "========================================\n")
	fmt.Fprintf(w, "Device Name: %s\n", d.config.DeviceName)
	fmt.Fprintf(w, "Compute Units: %d\n", d.config.NumComputeUnits)
	fmt.Fprintf(w, "Warps per CU: %d\n", d.config.WarpsPerCU)
	fmt.Fprintf(w, "Threads per Warp: %d\n", d.config.ThreadsPerWarp)
	fmt.Fprintf(w, "Max Blocks per CU: %d\n", d.config.MaxBlocksPerCU)
	fmt.Fprintf(w, "Global Memory: %d GB\n", d.config.GlobalMemorySize/(1<<30))
	fmt.Fprintf(w, "Shared Memory per Block: %d KB\n", d.config.SharedMemoryPerBlock/(1<<10))
	fmt.Fprintf(w, "========================================\n\n")
}

// Reset stops the device and clears all metrics and the submission
// registry. The installed scheduler keeps its buckets.
func (d *Device) Reset() {
	d.Stop()

	for _, cu := range d.cus {
		cu.ResetMetrics()
	}
	d.analyzer.Reset()

	d.regMu.Lock()
	clear(d.registry)
	d.regMu.Unlock()

	d.log.Info("device reset")
}
