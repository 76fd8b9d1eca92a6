// Package metrics collects per-workload and device-wide performance
// counters and renders them as reports, CSV, and JSON.
package metrics

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/workload"
)

// WorkloadMetrics is the record the analyzer keeps for one completed
// kernel.
type WorkloadMetrics struct {
	Name             string        `json:"name"`
	Kind             workload.Kind `json:"type"`
	ExecutionTimeMs  float64       `json:"execution_time_ms"`
	Instructions     uint64        `json:"instructions"`
	MemoryOps        uint64        `json:"memory_ops"`
	Cycles           uint64        `json:"cycles"`
	Threads          int           `json:"threads"`
	Blocks           int           `json:"blocks"`
	AvgCUUtilization float64       `json:"utilization_pct"`
	Throughput       float64       `json:"throughput_instr_ms"`
}

// DeviceMetrics is the device-wide aggregate recorded when a simulation
// ends.
type DeviceMetrics struct {
	TotalCycles          uint64  `json:"total_cycles"`
	TotalInstructions    uint64  `json:"total_instructions"`
	TotalMemoryOps       uint64  `json:"total_memory_ops"`
	TotalExecutionTimeMs float64 `json:"total_execution_time_ms"`
	AverageUtilization   float64 `json:"average_utilization_pct"`
	WorkloadsExecuted    int     `json:"workloads_executed"`
}

// CUSample is one compute unit's counters at a sampling instant.
type CUSample struct {
	Instructions uint64
	Cycles       uint64
	Utilization  float64
}

// DeviceView is what the analyzer needs from a device to take a sample.
// *device.Device implements it.
type DeviceView interface {
	CUSamples() []CUSample
	TotalMemoryOps() uint64
}

// Analyzer accumulates workload records over one simulation run.
type Analyzer struct {
	mu        sync.Mutex
	workloads []WorkloadMetrics
	device    DeviceMetrics
	simStart  time.Time
	simEnd    time.Time
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer { return &Analyzer{} }

// RecordWorkload samples the device and appends a record for the given
// completed kernel.
func (a *Analyzer) RecordWorkload(w *workload.Workload, dev DeviceView) {
	if w == nil || dev == nil {
		return
	}

	m := WorkloadMetrics{
		Name:            w.Name(),
		Kind:            w.Kind(),
		ExecutionTimeMs: w.ExecutionTime(),
		Threads:         w.Config().TotalThreads(),
		Blocks:          w.Config().TotalBlocks(),
	}

	samples := dev.CUSamples()
	var utilization float64
	for _, s := range samples {
		m.Instructions += s.Instructions
		m.Cycles += s.Cycles
		utilization += s.Utilization
	}
	if len(samples) > 0 {
		m.AvgCUUtilization = utilization / float64(len(samples))
	}
	if m.ExecutionTimeMs > 0 {
		m.Throughput = float64(m.Instructions) / m.ExecutionTimeMs
	}
	m.MemoryOps = dev.TotalMemoryOps()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.workloads = append(a.workloads, m)
}

// RecordDevice samples the device into the device-wide aggregate.
func (a *Analyzer) RecordDevice(dev DeviceView) {
	if dev == nil {
		return
	}

	var d DeviceMetrics
	samples := dev.CUSamples()
	var utilization float64
	for _, s := range samples {
		d.TotalCycles += s.Cycles
		d.TotalInstructions += s.Instructions
		utilization += s.Utilization
	}
	if len(samples) > 0 {
		d.AverageUtilization = utilization / float64(len(samples))
	}
	d.TotalMemoryOps = dev.TotalMemoryOps()

	a.mu.Lock()
	defer a.mu.Unlock()
	d.TotalExecutionTimeMs = a.device.TotalExecutionTimeMs
	d.WorkloadsExecuted = len(a.workloads)
	a.device = d
}

// StartSimulation marks the start of simulation wall time.
func (a *Analyzer) StartSimulation() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.simStart = time.Now()
}

// EndSimulation marks the end of simulation wall time.
func (a *Analyzer) EndSimulation() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.simEnd = time.Now()
	a.device.TotalExecutionTimeMs = a.totalSimulationTimeLocked()
}

// TotalSimulationTime returns the wall time between StartSimulation and
// EndSimulation in milliseconds.
func (a *Analyzer) TotalSimulationTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalSimulationTimeLocked()
}

func (a *Analyzer) totalSimulationTimeLocked() float64 {
	if a.simStart.IsZero() || a.simEnd.IsZero() {
		return 0
	}
	return float64(a.simEnd.Sub(a.simStart).Milliseconds())
}

// WorkloadMetrics returns a copy of the per-workload records in recording
// order.
func (a *Analyzer) WorkloadMetrics() []WorkloadMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]WorkloadMetrics, len(a.workloads))
	copy(out, a.workloads)
	return out
}

// DeviceMetrics returns the device-wide aggregate.
func (a *Analyzer) DeviceMetrics() DeviceMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.device
}

// AverageThroughput returns the mean per-workload throughput, or 0 when
// nothing has been recorded.
func (a *Analyzer) AverageThroughput() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.workloads) == 0 {
		return 0
	}
	var total float64
	for _, m := range a.workloads {
		total += m.Throughput
	}
	return total / float64(len(a.workloads))
}

// AverageWorkloadTime returns the mean workload execution time in
// milliseconds, or 0 when nothing has been recorded.
func (a *Analyzer) AverageWorkloadTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.workloads) == 0 {
		return 0
	}
	var total float64
	for _, m := range a.workloads {
		total += m.ExecutionTimeMs
	}
	return total / float64(len(a.workloads))
}

// FastestWorkload returns the record with the smallest execution time.
// ok is false when nothing has been recorded.
func (a *Analyzer) FastestWorkload() (m WorkloadMetrics, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.workloads) == 0 {
		return WorkloadMetrics{}, false
	}
	best := a.workloads[0]
	for _, w := range a.workloads[1:] {
		if w.ExecutionTimeMs < best.ExecutionTimeMs {
			best = w
		}
	}
	return best, true
}

// SlowestWorkload returns the record with the largest execution time.
// ok is false when nothing has been recorded.
func (a *Analyzer) SlowestWorkload() (m WorkloadMetrics, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.workloads) == 0 {
		return WorkloadMetrics{}, false
	}
	best := a.workloads[0]
	for _, w := range a.workloads[1:] {
		if w.ExecutionTimeMs > best.ExecutionTimeMs {
			best = w
		}
	}
	return best, true
}

// Snapshot returns an independent copy of the analyzer, suitable for
// storing in a Comparison while the original keeps recording.
func (a *Analyzer) Snapshot() *Analyzer {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := &Analyzer{
		workloads: make([]WorkloadMetrics, len(a.workloads)),
		device:    a.device,
		simStart:  a.simStart,
		simEnd:    a.simEnd,
	}
	copy(s.workloads, a.workloads)
	return s
}

// Reset discards all recorded metrics.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.workloads = nil
	a.device = DeviceMetrics{}
	a.simStart = time.Time{}
	a.simEnd = time.Time{}
}

// WriteSummary writes the device-wide summary block.
func (a *Analyzer) WriteSummary(w io.Writer) {
	d := a.DeviceMetrics()

	fmt.Fprintf(w, "\n========================================\n")
	fmt.Fprintf(w, "      PERFORMANCE SUMMARY\n")
	fmt.Fprintf(w, "========================================\n\n")
	fmt.Fprintf(w, "Total Simulation Time: %.2f ms\n", d.TotalExecutionTimeMs)
	fmt.Fprintf(w, "Workloads Executed: %d\n", d.WorkloadsExecuted)
	fmt.Fprintf(w, "Total Instructions: %d\n", d.TotalInstructions)
	fmt.Fprintf(w, "Total Memory Operations: %d\n", d.TotalMemoryOps)
	fmt.Fprintf(w, "Average GPU Utilization: %.2f%%\n", d.AverageUtilization)
	fmt.Fprintf(w, "Average Throughput: %.2f instr/ms\n", a.AverageThroughput())
	fmt.Fprintf(w, "\n========================================\n\n")
}

// WriteDetailedReport writes the summary followed by one block per
// recorded workload.
func (a *Analyzer) WriteDetailedReport(w io.Writer) {
	a.WriteSummary(w)

	fmt.Fprintf(w, "WORKLOAD DETAILS:\n")
	fmt.Fprintf(w, "----------------------------------------\n")

	for _, m := range a.WorkloadMetrics() {
		fmt.Fprintf(w, "\nWorkload: %s\n", m.Name)
		fmt.Fprintf(w, "  Execution Time: %.2f ms\n", m.ExecutionTimeMs)
		fmt.Fprintf(w, "  Instructions: %d\n", m.Instructions)
		fmt.Fprintf(w, "  Memory Ops: %d\n", m.MemoryOps)
		fmt.Fprintf(w, "  Threads: %d\n", m.Threads)
		fmt.Fprintf(w, "  Blocks: %d\n", m.Blocks)
		fmt.Fprintf(w, "  Avg CU Utilization: %.2f%%\n", m.AvgCUUtilization)
		fmt.Fprintf(w, "  Throughput: %.2f instr/ms\n", m.Throughput)
	}

	fmt.Fprintf(w, "\n========================================\n")
}

// workloadCSVHeader is the exact per-workload export header; column order
// is contract.
const workloadCSVHeader = "Workload,Type,Execution_Time_ms,Instructions,Memory_Ops,Threads,Blocks,Utilization_%,Throughput_instr_ms\n"

// ExportToCSV writes the per-workload records to path.
func (a *Analyzer) ExportToCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.WriteString(f, workloadCSVHeader); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, m := range a.WorkloadMetrics() {
		_, err := fmt.Fprintf(f, "%s,%d,%g,%d,%d,%d,%d,%g,%g\n",
			m.Name, int(m.Kind), m.ExecutionTimeMs, m.Instructions,
			m.MemoryOps, m.Threads, m.Blocks, m.AvgCUUtilization, m.Throughput)
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return f.Close()
}

// ExportToJSON writes the per-workload records and the device aggregate to
// path as a single JSON document.
func (a *Analyzer) ExportToJSON(path string) error {
	doc := struct {
		Device    DeviceMetrics     `json:"device"`
		Workloads []WorkloadMetrics `json:"workloads"`
	}{
		Device:    a.DeviceMetrics(),
		Workloads: a.WorkloadMetrics(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Comparison collects analyzer snapshots keyed by scheduler name so runs
// of the same workload mix under different policies can be compared.
type Comparison struct {
	mu        sync.Mutex
	analyzers map[string]*Analyzer
}

// NewComparison creates an empty comparison.
func NewComparison() *Comparison {
	return &Comparison{analyzers: make(map[string]*Analyzer)}
}

// AddAnalyzer stores a snapshot under the scheduler's name, replacing any
// previous entry.
func (c *Comparison) AddAnalyzer(name string, a *Analyzer) {
	if a == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyzers[name] = a
}

// names returns scheduler names in stable sorted order.
func (c *Comparison) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.analyzers))
	for name := range c.analyzers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *Comparison) analyzer(name string) *Analyzer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analyzers[name]
}

// WriteComparison writes the side-by-side scheduler table.
func (c *Comparison) WriteComparison(w io.Writer) {
	fmt.Fprintf(w, "\n========================================\n")
	fmt.Fprintf(w, "   SCHEDULER COMPARISON\n")
	fmt.Fprintf(w, "========================================\n\n")
	fmt.Fprintf(w, "%-20s%-15s%-15s%-15s\n",
		"Scheduler", "Total Time(ms)", "Avg Util(%)", "Throughput")
	fmt.Fprintf(w, "----------------------------------------\n")

	for _, name := range c.names() {
		a := c.analyzer(name)
		d := a.DeviceMetrics()
		fmt.Fprintf(w, "%-20s%-15.2f%-15.2f%-15.2f\n",
			name, d.TotalExecutionTimeMs, d.AverageUtilization, a.AverageThroughput())
	}

	fmt.Fprintf(w, "\nBest Scheduler: %s\n", c.BestScheduler())
	fmt.Fprintf(w, "========================================\n\n")
}

// comparisonCSVHeader is the exact comparison export header.
const comparisonCSVHeader = "Scheduler,Total_Time_ms,Avg_Utilization_%,Avg_Throughput,Total_Instructions,Total_Memory_Ops\n"

// ExportComparisonCSV writes one row per scheduler to path.
func (c *Comparison) ExportComparisonCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.WriteString(f, comparisonCSVHeader); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, name := range c.names() {
		a := c.analyzer(name)
		d := a.DeviceMetrics()
		_, err := fmt.Fprintf(f, "%s,%g,%g,%g,%d,%d\n",
			name, d.TotalExecutionTimeMs, d.AverageUtilization,
			a.AverageThroughput(), d.TotalInstructions, d.TotalMemoryOps)
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return f.Close()
}

// ExportComparisonJSON writes the comparison as a JSON object keyed by
// scheduler name.
func (c *Comparison) ExportComparisonJSON(path string) error {
	doc := make(map[string]DeviceMetrics, len(c.names()))
	for _, name := range c.names() {
		doc[name] = c.analyzer(name).DeviceMetrics()
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode comparison: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// BestScheduler returns the name of the scheduler with the smallest
// positive total execution time, or "None" when nothing qualifies.
func (c *Comparison) BestScheduler() string {
	best := "None"
	bestTime := 0.0
	for _, name := range c.names() {
		t := c.analyzer(name).DeviceMetrics().TotalExecutionTimeMs
		if t <= 0 {
			continue
		}
		if best == "None" || t < bestTime {
			best = name
			bestTime = t
		}
	}
	return best
}
