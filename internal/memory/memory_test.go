package memory

import "testing"

func TestGlobalMemoryBounds(t *testing.T) {
	t.Parallel()
	m := NewGlobalMemory(1024)

	t.Run("in-range access succeeds", func(t *testing.T) {
		if !m.Read(0, 1024) {
			t.Fatal("read of full region failed")
		}
		if !m.Write(1000, 24) {
			t.Fatal("write at tail failed")
		}
	})

	t.Run("out-of-range access fails", func(t *testing.T) {
		if m.Read(1024, 1) {
			t.Fatal("read past end succeeded")
		}
		if m.Write(1000, 25) {
			t.Fatal("write past end succeeded")
		}
	})
}

func TestGlobalMemoryCounters(t *testing.T) {
	t.Parallel()
	m := NewGlobalMemory(4096)

	m.Read(0, 100)
	m.Read(0, 50)
	m.Write(0, 200)
	m.Read(5000, 10) // rejected, must not count

	if got := m.AccessCount(); got != 3 {
		t.Fatalf("AccessCount = %d, want 3", got)
	}
	if got := m.ReadCount(); got != 2 {
		t.Fatalf("ReadCount = %d, want 2", got)
	}
	if got := m.WriteCount(); got != 1 {
		t.Fatalf("WriteCount = %d, want 1", got)
	}
	if got := m.BytesRead(); got != 150 {
		t.Fatalf("BytesRead = %d, want 150", got)
	}
	if got := m.BytesWritten(); got != 200 {
		t.Fatalf("BytesWritten = %d, want 200", got)
	}

	m.Reset()
	if m.AccessCount() != 0 || m.BytesRead() != 0 {
		t.Fatal("Reset left counters non-zero")
	}
}

func TestGlobalMemoryDefaults(t *testing.T) {
	t.Parallel()
	m := NewGlobalMemory(0)
	if m.Size() != DefaultGlobalSize {
		t.Fatalf("Size = %d, want %d", m.Size(), uint64(DefaultGlobalSize))
	}
	if m.Latency() != GlobalLatencyCycles {
		t.Fatalf("Latency = %d, want %d", m.Latency(), GlobalLatencyCycles)
	}
}

func TestSharedMemory(t *testing.T) {
	t.Parallel()
	m := NewSharedMemory(0)
	if m.Size() != DefaultSharedSize {
		t.Fatalf("Size = %d, want %d", m.Size(), DefaultSharedSize)
	}
	if m.Latency() != SharedLatencyCycles {
		t.Fatalf("Latency = %d, want %d", m.Latency(), SharedLatencyCycles)
	}

	m.SetOwner(7)
	if m.Owner() != 7 {
		t.Fatalf("Owner = %d, want 7", m.Owner())
	}

	if !m.Read(0, DefaultSharedSize) {
		t.Fatal("full-region read failed")
	}
	if m.Write(DefaultSharedSize, 1) {
		t.Fatal("write past end succeeded")
	}
	if got := m.AccessCount(); got != 1 {
		t.Fatalf("AccessCount = %d, want 1", got)
	}

	m.Clear()
	if m.AccessCount() != 0 {
		t.Fatal("Clear left access count non-zero")
	}
}

func TestRegisterFile(t *testing.T) {
	t.Parallel()
	f := NewRegisterFile(0)
	if f.NumRegisters() != DefaultRegistersPerThread {
		t.Fatalf("NumRegisters = %d, want %d", f.NumRegisters(), DefaultRegistersPerThread)
	}

	if !f.Write(0, 42) {
		t.Fatal("write to register 0 failed")
	}
	v, ok := f.Read(0)
	if !ok || v != 42 {
		t.Fatalf("Read(0) = %d, %v; want 42, true", v, ok)
	}

	if f.Write(DefaultRegistersPerThread, 1) {
		t.Fatal("write past file succeeded")
	}
	if _, ok := f.Read(-1); ok {
		t.Fatal("negative index read succeeded")
	}

	f.Clear()
	if v, _ := f.Read(0); v != 0 {
		t.Fatalf("register 0 after Clear = %d, want 0", v)
	}
}

func TestControllerCacheHitRate(t *testing.T) {
	t.Parallel()
	c := NewController(0)

	if got := c.CacheHitRate(); got != 0 {
		t.Fatalf("empty hit rate = %v, want 0", got)
	}

	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheMiss()

	if got := c.CacheHitRate(); got != 0.75 {
		t.Fatalf("hit rate = %v, want 0.75", got)
	}
}

func TestControllerMemoryOps(t *testing.T) {
	t.Parallel()
	c := NewController(0)

	for i := 0; i < 10; i++ {
		c.RecordMemoryOp()
	}
	if got := c.TotalMemoryOps(); got != 10 {
		t.Fatalf("TotalMemoryOps = %d, want 10", got)
	}
	if c.Global() == nil {
		t.Fatal("controller has no global memory")
	}
}
