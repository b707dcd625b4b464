package scheduler

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"hostmon/internal/cache"
	"hostmon/internal/collector"
	"hostmon/internal/collector/collectortest"
	"hostmon/internal/config"

	"go.uber.org/zap/zaptest"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	provider  *collectortest.Provider
	cache     *cache.SnapshotCache
	scheduler *Scheduler
	clock     *testClock
}

func newFixture(t *testing.T, mutate func(c *config.Config)) *fixture {
	t.Helper()

	cfg := config.NewConfig()
	mutate(cfg)

	clock := &testClock{now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	logger := zaptest.NewLogger(t)
	provider := collectortest.New()
	snapshots := cache.New(cfg.PublishInterval(), cache.WithClock(clock.Now))
	sampler := collector.New(provider, cfg.DiskPath, logger)

	return &fixture{
		provider:  provider,
		cache:     snapshots,
		scheduler: New(cfg, sampler, snapshots, logger, WithClock(clock.Now)),
		clock:     clock,
	}
}

func (f *fixture) ticks(n int) {
	for i := 0; i < n; i++ {
		f.scheduler.tick()
		f.clock.Advance(time.Second)
	}
}

func TestPublishCadence(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.PublishEvery = 5 })

	f.ticks(4)
	if _, ok := f.cache.Read(); ok {
		t.Fatal("snapshot published before the publish cadence elapsed")
	}

	f.ticks(1)
	if got := f.cache.Sequence(); got != 1 {
		t.Fatalf("Sequence after 5 ticks = %d, want 1", got)
	}

	for want := uint64(2); want <= 4; want++ {
		f.ticks(4)
		if got := f.cache.Sequence(); got != want-1 {
			t.Errorf("published early: sequence %d", got)
		}
		f.ticks(1)
		if got := f.cache.Sequence(); got != want {
			t.Errorf("Sequence = %d, want %d", got, want)
		}
	}

	stats := f.scheduler.Stats()
	if stats.Ticks != 20 || stats.Publishes != 4 || stats.FailedTicks != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestPublishedSnapshotIsWindowAverage(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.WindowSize = 5
		c.PublishEvery = 6
	})

	for _, v := range []float64{10, 20, 30, 40, 50, 60} {
		v := v
		f.provider.Set(func(p *collectortest.Provider) { p.CPU = v })
		f.ticks(1)
	}

	e, ok := f.scheduler.CachedSnapshot()
	if !ok {
		t.Fatal("expected published snapshot")
	}
	if math.Abs(e.Snapshot.CPU.UsagePercent-40) > 1e-9 {
		t.Errorf("cpu = %v, want mean of last 5 samples (40)", e.Snapshot.CPU.UsagePercent)
	}
	if e.Snapshot.Memory.UsagePercent != 50 || e.Snapshot.Memory.TotalBytes != 8<<30 {
		t.Errorf("memory = %+v", e.Snapshot.Memory)
	}
	if e.Snapshot.Hostname != "test-host" || e.Snapshot.CPU.Count != 4 {
		t.Errorf("host facts missing: %q %d", e.Snapshot.Hostname, e.Snapshot.CPU.Count)
	}
	if e.Snapshot.Network.Interface != "eth0" {
		t.Errorf("interface = %q", e.Snapshot.Network.Interface)
	}
}

func TestNetworkRatesBetweenPublishes(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.PublishEvery = 5 })

	f.ticks(5)
	e, _ := f.cache.Read()
	if e.Snapshot.Network.SentPerSec != 0 || e.Snapshot.Network.RecvPerSec != 0 {
		t.Errorf("first publish must have zero rates, got %+v", e.Snapshot.Network)
	}

	f.provider.Set(func(p *collectortest.Provider) {
		p.Net = collector.NetCounters{BytesSent: 500, BytesRecv: 1000}
	})
	f.ticks(5)

	e, _ = f.cache.Read()
	if e.Snapshot.Network.SentPerSec != 100 || e.Snapshot.Network.RecvPerSec != 200 {
		t.Errorf("rates = %v/%v, want 100/200", e.Snapshot.Network.SentPerSec, e.Snapshot.Network.RecvPerSec)
	}
	if e.Snapshot.Network.BytesRecv != 1000 {
		t.Errorf("bytes_recv = %d", e.Snapshot.Network.BytesRecv)
	}

	// откат счетчиков не дает отрицательной скорости
	f.provider.Set(func(p *collectortest.Provider) {
		p.Net = collector.NetCounters{BytesSent: 10, BytesRecv: 10}
	})
	f.ticks(5)
	e, _ = f.cache.Read()
	if e.Snapshot.Network.SentPerSec != 0 || e.Snapshot.Network.RecvPerSec != 0 {
		t.Errorf("rates after counter reset = %+v", e.Snapshot.Network)
	}
}

func TestFailedTicksKeepPreviousSnapshot(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.PublishEvery = 5 })

	f.ticks(5)
	before, ok := f.cache.Read()
	if !ok {
		t.Fatal("expected first snapshot")
	}

	f.provider.FailAll(true)
	f.ticks(5)

	after, ok := f.cache.Read()
	if !ok {
		t.Fatal("snapshot disappeared after failed ticks")
	}
	if after.Snapshot.Sequence != before.Snapshot.Sequence {
		t.Errorf("failed publish tick replaced the snapshot: %d -> %d", before.Snapshot.Sequence, after.Snapshot.Sequence)
	}
	if got := f.scheduler.Stats().FailedTicks; got != 5 {
		t.Errorf("FailedTicks = %d, want 5", got)
	}

	f.provider.FailAll(false)
	f.ticks(5)
	if got := f.cache.Sequence(); got != 2 {
		t.Errorf("Sequence after recovery = %d, want 2", got)
	}
}

func TestOnlyPublishTickFails(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.PublishEvery = 5 })

	f.ticks(4)
	f.provider.FailAll(true)
	f.ticks(1)

	if _, ok := f.cache.Read(); ok {
		t.Error("a completely failed publish tick must not publish")
	}
}

func TestPartialFailureStillPublishes(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.PublishEvery = 2 })
	f.provider.Fail("cpu", true)
	f.provider.Fail("net", true)
	f.provider.Fail("temps", true)

	f.ticks(2)

	e, ok := f.cache.Read()
	if !ok {
		t.Fatal("expected snapshot despite partial failure")
	}
	if e.Snapshot.CPU.UsagePercent != 0 {
		t.Errorf("cpu = %v, want 0", e.Snapshot.CPU.UsagePercent)
	}
	if e.Snapshot.Memory.UsagePercent != 50 || e.Snapshot.Disk.UsagePercent != 60 {
		t.Errorf("healthy metrics missing: %+v %+v", e.Snapshot.Memory, e.Snapshot.Disk)
	}
	if len(e.Snapshot.Temperatures) != 0 {
		t.Errorf("temperatures = %v, want empty", e.Snapshot.Temperatures)
	}
}

func TestInstantSnapshotBypassesCache(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.PublishEvery = 2 })
	f.provider.Set(func(p *collectortest.Provider) {
		p.CPU = 77
		p.Net = collector.NetCounters{BytesSent: 500, BytesRecv: 500}
	})

	// первый мгновенный срез только задает базу CPU
	if snap := f.scheduler.InstantSnapshot(context.Background()); snap.CPU.UsagePercent != 0 {
		t.Errorf("first instant cpu = %v, want 0", snap.CPU.UsagePercent)
	}
	snap := f.scheduler.InstantSnapshot(context.Background())
	if snap.CPU.UsagePercent != 77 || snap.Memory.UsagePercent != 50 {
		t.Errorf("instant snapshot = %+v", snap)
	}
	if snap.Sequence != 0 || !snap.GeneratedAt.Equal(f.clock.Now()) {
		t.Errorf("instant snapshot stamped %d at %v", snap.Sequence, snap.GeneratedAt)
	}
	if f.cache.Sequence() != 0 {
		t.Error("instant snapshot must not publish")
	}
	if f.scheduler.averager.Len("cpu") != 0 {
		t.Error("instant path must not feed the averaging windows")
	}

	// первая публикация цикла идет от собственной сетевой базы
	f.provider.Set(func(p *collectortest.Provider) {
		p.Net = collector.NetCounters{BytesSent: 5000, BytesRecv: 5000}
	})
	f.ticks(2)
	e, _ := f.cache.Read()
	if e.Snapshot.Network.SentPerSec != 0 || e.Snapshot.Network.RecvPerSec != 0 {
		t.Errorf("loop rates used the instant baseline: %+v", e.Snapshot.Network)
	}
}

func TestInstantSnapshotKeepsLoopCPUBaseline(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.PublishEvery = 100 })
	f.provider.Set(func(p *collectortest.Provider) { p.CPU = 90 })

	f.ticks(1)
	for i := 0; i < 3; i++ {
		// мгновенные запросы перед тиком
		f.scheduler.InstantSnapshot(context.Background())
		f.scheduler.InstantSnapshot(context.Background())
		f.ticks(1)
	}

	if got := f.scheduler.averager.Len("cpu"); got != 3 {
		t.Fatalf("cpu samples = %d, want 3", got)
	}
	avg, _ := f.scheduler.averager.Averages()
	if avg["cpu"] != 90 {
		t.Errorf("cpu average = %v, want 90 with no zero samples", avg["cpu"])
	}
}

func TestPublishKeepsLastGoodAbsoluteValues(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.PublishEvery = 5 })

	f.ticks(4)
	f.provider.Fail("memory", true)
	f.provider.Fail("disk", true)
	f.ticks(1)

	e, ok := f.cache.Read()
	if !ok {
		t.Fatal("expected snapshot")
	}
	if e.Snapshot.Memory.UsagePercent != 50 || e.Snapshot.Memory.TotalBytes != 8<<30 {
		t.Errorf("memory = %+v, want averaged percent with last known totals", e.Snapshot.Memory)
	}
	if e.Snapshot.Disk.TotalBytes != 100<<30 || e.Snapshot.Disk.Path != "/" {
		t.Errorf("disk = %+v, want last known totals", e.Snapshot.Disk)
	}
}

func TestInstantSnapshotAllFailing(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {})
	f.provider.FailAll(true)

	snap := f.scheduler.InstantSnapshot(context.Background())
	if snap.CPU.UsagePercent != 0 || snap.Hostname != "" {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}
	if snap.Temperatures == nil {
		t.Error("temperatures must be empty, not nil")
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Interval = 5 * time.Millisecond
		c.PublishEvery = 2
	})

	if f.scheduler.State() != StateInitializing {
		t.Errorf("state before start = %v", f.scheduler.State())
	}

	f.scheduler.Start()
	f.scheduler.Start()
	t.Cleanup(func() {
		f.scheduler.Stop()
		f.scheduler.Wait()
	})

	deadline := time.Now().Add(5 * time.Second)
	for f.cache.Sequence() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("loop published %d snapshots before deadline", f.cache.Sequence())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if f.scheduler.State() != StateSampling {
		t.Errorf("state while running = %v", f.scheduler.State())
	}

	f.scheduler.Stop()
	f.scheduler.Wait()

	if f.scheduler.State() != StateStopped {
		t.Errorf("state after stop = %v", f.scheduler.State())
	}
	if _, ok := f.scheduler.CachedSnapshot(); !ok {
		t.Error("snapshot must stay readable after stop")
	}
}

func TestWaitWithoutStart(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {})

	done := make(chan struct{})
	go func() {
		f.scheduler.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked on a scheduler that never started")
	}
}

func TestStateString(t *testing.T) {
	if StateSampling.String() != "sampling" || State(42).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
