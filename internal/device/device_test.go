package device

import (
	"math"
	"testing"
	"time"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/sched"
	"github.com/AlmasAtaman/gpu-compute-simulator/internal/workload"
)

// testConfig keeps end-to-end runs small and fast.
func testConfig(cus int) Config {
	return Config{
		NumComputeUnits:  cus,
		GlobalMemorySize: 1 << 20,
		DeviceName:       "test device",
	}
}

// smallWorkload builds a custom kernel with the given number of 64-thread
// blocks (two warps per block).
func smallWorkload(name string, blocks int) *workload.Workload {
	return workload.New(name, workload.Custom, workload.KernelConfig{
		GridX: blocks, GridY: 1, GridZ: 1,
		BlockX: 64, BlockY: 1, BlockZ: 1,
	})
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()
	d := New(Config{})

	cfg := d.Config()
	def := DefaultConfig()
	if cfg != def {
		t.Fatalf("config = %+v, want defaults %+v", cfg, def)
	}
	if d.NumComputeUnits() != def.NumComputeUnits {
		t.Fatalf("NumComputeUnits = %d, want %d", d.NumComputeUnits(), def.NumComputeUnits)
	}
	if d.Scheduler().Name() != "FIFO" {
		t.Fatalf("default scheduler = %q, want FIFO", d.Scheduler().Name())
	}
}

func TestSubmitRejectsInvalidWorkloads(t *testing.T) {
	t.Parallel()
	d := New(testConfig(2))

	d.SubmitWorkload(nil)
	d.SubmitWorkload(workload.New("empty", workload.Custom, workload.KernelConfig{
		GridX: 0, GridY: 1, GridZ: 1, BlockX: 64, BlockY: 1, BlockZ: 1,
	}))

	s := d.Scheduler()
	if s.PendingCount() != 0 || s.RunningCount() != 0 {
		t.Fatalf("buckets = %d/%d after invalid submissions, want 0/0",
			s.PendingCount(), s.RunningCount())
	}
}

func TestEndToEndSingleWorkload(t *testing.T) {
	t.Parallel()
	d := New(testConfig(4))

	w := workload.NewVectorAdd(16 * 1024)
	d.SubmitWorkload(w)

	d.ExecuteWorkloads()
	d.WaitForCompletion()

	if d.IsRunning() {
		t.Fatal("device still running after WaitForCompletion")
	}

	s := d.Scheduler()
	if s.PendingCount() != 0 || s.RunningCount() != 0 {
		t.Fatalf("buckets = %d/%d after completion, want 0/0",
			s.PendingCount(), s.RunningCount())
	}
	if s.CompletedCount() != 1 {
		t.Fatalf("completed count = %d, want 1", s.CompletedCount())
	}
	if !w.Completed() {
		t.Fatal("workload not marked completed")
	}
	if w.ExecutionTime() <= 0 {
		t.Fatalf("ExecutionTime = %v, want > 0", w.ExecutionTime())
	}
	if got := w.EstimatedInstructions(); got != 2*16*1024 {
		t.Fatalf("EstimatedInstructions = %d, want %d", got, 2*16*1024)
	}

	records := d.Analyzer().WorkloadMetrics()
	if len(records) != 1 {
		t.Fatalf("analyzer has %d records, want 1", len(records))
	}
	if records[0].Name != w.Name() {
		t.Fatalf("recorded name = %q, want %q", records[0].Name, w.Name())
	}
	if d.Analyzer().DeviceMetrics().WorkloadsExecuted != 1 {
		t.Fatalf("WorkloadsExecuted = %d, want 1",
			d.Analyzer().DeviceMetrics().WorkloadsExecuted)
	}

	if d.TotalActiveBlocks() != 0 || d.TotalActiveWarps() != 0 {
		t.Fatalf("residual blocks/warps = %d/%d, want 0/0",
			d.TotalActiveBlocks(), d.TotalActiveWarps())
	}

	if got, ok := d.Workload(w.ID()); !ok || got != w {
		t.Fatal("registry lost the submitted workload")
	}
}

func TestEndToEndMultipleWorkloads(t *testing.T) {
	t.Parallel()
	d := New(testConfig(4))

	for _, w := range []*workload.Workload{
		smallWorkload("w0", 8),
		smallWorkload("w1", 4),
		smallWorkload("w2", 2),
	} {
		d.SubmitWorkload(w)
	}

	d.ExecuteWorkloads()
	d.WaitForCompletion()

	s := d.Scheduler()
	if s.CompletedCount() != 3 {
		t.Fatalf("completed count = %d, want 3", s.CompletedCount())
	}
	total := s.PendingCount() + s.RunningCount() + s.CompletedCount()
	if total != 3 {
		t.Fatalf("bucket total = %d, want 3", total)
	}

	a := d.Analyzer()
	fastest, ok := a.FastestWorkload()
	if !ok {
		t.Fatal("no fastest workload recorded")
	}
	slowest, _ := a.SlowestWorkload()
	if slowest.ExecutionTimeMs < fastest.ExecutionTimeMs {
		t.Fatal("slowest workload faster than fastest")
	}
}

func TestSchedulerPolicyEndToEnd(t *testing.T) {
	t.Parallel()
	d := New(testConfig(2))
	d.SetScheduler(sched.New(sched.Priority))

	low := smallWorkload("low", 2)
	low.SetPriority(1)
	high := smallWorkload("high", 2)
	high.SetPriority(9)

	d.SubmitWorkload(low)
	d.SubmitWorkload(high)

	d.ExecuteWorkloads()
	d.WaitForCompletion()

	done := d.Scheduler().CompletedWorkloads()
	if len(done) != 2 {
		t.Fatalf("completed %d workloads, want 2", len(done))
	}
	if done[0] != high {
		t.Fatalf("first completed = %q, want high", done[0].Name())
	}
}

func TestStopMidSimulation(t *testing.T) {
	t.Parallel()
	d := New(testConfig(1))

	// Enough work that the stop lands mid-flight.
	d.SubmitWorkload(workload.NewVectorAdd(64 * 1024))

	d.ExecuteWorkloads()
	time.Sleep(50 * time.Millisecond)
	d.Stop()

	if d.IsRunning() {
		t.Fatal("device running after Stop")
	}

	// Stop closed the analyzer's device record with the partial work.
	dm := d.Analyzer().DeviceMetrics()
	if dm.TotalCycles == 0 {
		t.Fatal("device metrics show no cycles despite partial work")
	}

	// Stop is idempotent.
	d.Stop()
}

func TestExecuteWorkloadsTwice(t *testing.T) {
	t.Parallel()
	d := New(testConfig(1))
	d.SubmitWorkload(smallWorkload("w", 1))

	d.ExecuteWorkloads()
	d.ExecuteWorkloads() // second call is a warning, not a second fleet
	d.WaitForCompletion()

	if d.Scheduler().CompletedCount() != 1 {
		t.Fatalf("completed count = %d, want 1", d.Scheduler().CompletedCount())
	}
}

func TestUtilizationAggregation(t *testing.T) {
	t.Parallel()
	d := New(testConfig(1))
	d.SubmitWorkload(smallWorkload("w", 4))

	d.ExecuteWorkloads()
	d.WaitForCompletion()

	// With one CU the mean utilization equals active/total exactly.
	cu := d.ComputeUnits()[0]
	total := cu.CyclesExecuted()
	if total == 0 {
		t.Fatal("CU executed no cycles")
	}
	want := float64(total-cu.IdleCycles()) / float64(total) * 100
	if got := d.AverageUtilization(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("AverageUtilization = %v, want %v", got, want)
	}
}

func TestDeviceReset(t *testing.T) {
	t.Parallel()
	d := New(testConfig(2))
	w := smallWorkload("w", 2)
	d.SubmitWorkload(w)

	d.ExecuteWorkloads()
	d.WaitForCompletion()
	d.Reset()

	for _, cu := range d.ComputeUnits() {
		if cu.CyclesExecuted() != 0 {
			t.Fatal("Reset left CU cycles")
		}
	}
	if len(d.Analyzer().WorkloadMetrics()) != 0 {
		t.Fatal("Reset left analyzer records")
	}
	if _, ok := d.Workload(w.ID()); ok {
		t.Fatal("Reset left the registry populated")
	}
}

func TestMemoryOpsMonotonic(t *testing.T) {
	t.Parallel()
	d := New(testConfig(2))
	d.SubmitWorkload(smallWorkload("w0", 2))

	d.ExecuteWorkloads()
	d.WaitForCompletion()

	after := d.TotalMemoryOps()
	if after == 0 {
		t.Fatal("no memory operations recorded")
	}

	d.SubmitWorkload(smallWorkload("w1", 2))
	d.ExecuteWorkloads()
	d.WaitForCompletion()

	if d.TotalMemoryOps() < after {
		t.Fatal("memory op counter went backwards")
	}
}
