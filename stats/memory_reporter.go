package stats

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/grafana/decaystats/decay"
	"github.com/grafana/decaystats/distribution"
	"github.com/grafana/decaystats/util"
)

// MemoryReporter sources memory stats from the runtime and reports them
// It also reports gcPercent based on the GOGC environment variable
// GC pauses are tracked as a decayed distribution in microseconds.
type MemoryReporter struct {
	sync.Mutex
	mem                  runtime.MemStats
	gcCyclesTotal        uint32 // GC runs fed into gcPauses
	lastReportedGC       uint32 // GC runs seen by the last graphite report
	gcPauses             *distribution.TimeDistribution
	timeBoundGetMemStats func() runtime.MemStats
}

func NewMemoryReporter() *MemoryReporter {
	pauses, err := distribution.NewTimeDistributionWithClock(decay.FiveMinutes(), time.Microsecond, defaultClock)
	if err != nil {
		panic(err)
	}
	reporter := registry.getOrAdd("memory", &MemoryReporter{gcPauses: pauses}).(*MemoryReporter)
	reporter.timeBoundGetMemStats = util.TimeBoundWithCacheFunc(func() runtime.MemStats {
		mem := runtime.MemStats{}
		runtime.ReadMemStats(&mem)
		return mem
	}, 5*time.Second, 1*time.Minute)
	return reporter
}

func getGcPercent() int {
	// follow standard runtime:
	// unparseable or not set -> 100
	// "off" -> -1
	gogc := os.Getenv("GOGC")
	if gogc == "" {
		return 100
	}
	if gogc == "off" {
		return -1
	}
	val, err := strconv.Atoi(gogc)
	if err != nil {
		return 100
	}
	return val
}

// MemorySnapshot is what the api shows for the memory reporter.
type MemorySnapshot struct {
	HeapBytes   uint64                    `json:"heap_bytes"`
	SysBytes    uint64                    `json:"sys_bytes"`
	HeapObjects uint64                    `json:"heap_objects"`
	GCCycles    uint32                    `json:"gc_cycles"`
	GCPercent   int                       `json:"gogc"`
	GCPauses    distribution.TimeSnapshot `json:"gc_pauses"`
}

// update fetches fresh memory stats and records the pauses of the GC runs
// since the previous update. Requires m.Lock.
func (m *MemoryReporter) update() {
	m.mem = m.timeBoundGetMemStats()
	if m.gcCyclesTotal != m.mem.NumGC {
		m.recordPauses()
		m.gcCyclesTotal = m.mem.NumGC
	}
}

func (m *MemoryReporter) StatsSnapshot() interface{} {
	m.Lock()
	defer m.Unlock()
	m.update()
	snap := MemorySnapshot{
		HeapBytes:   m.mem.Alloc,
		SysBytes:    m.mem.Sys,
		HeapObjects: m.mem.HeapObjects,
		GCCycles:    m.mem.NumGC,
		GCPercent:   getGcPercent(),
		GCPauses:    m.gcPauses.Snapshot(),
	}
	return snap
}

// Digest exposes the decayed GC pause digest, in nanoseconds.
func (m *MemoryReporter) Digest() *decay.Digest {
	return m.gcPauses.Digest()
}

func (m *MemoryReporter) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	m.Lock()
	defer m.Unlock()
	lastReported := m.lastReportedGC
	m.update()
	gcPercent := getGcPercent()

	// metric memory.total_bytes_allocated is a counter of total number of bytes allocated during process lifetime
	buf = WriteUint64(buf, prefix, []byte("total_bytes_allocated.counter64"), m.mem.TotalAlloc, now)

	// metric memory.bytes_allocated_on_heap is a gauge of currently allocated (within the runtime) memory.
	buf = WriteUint64(buf, prefix, []byte("bytes.allocated_in_heap.gauge64"), m.mem.Alloc, now)

	// metric memory.bytes.obtained_from_sys is the number of bytes currently obtained from the system by the process.
	buf = WriteUint64(buf, prefix, []byte("bytes.obtained_from_sys.gauge64"), m.mem.Sys, now)

	// metric memory.total_gc_cycles is a counter of the number of GC cycles since process start
	buf = WriteUint32(buf, prefix, []byte("total_gc_cycles.counter64"), m.mem.NumGC, now)

	// metric memory.gc.cpu_fraction is how much cpu is consumed by the GC across process lifetime, in pro-mille
	buf = WriteUint32(buf, prefix, []byte("gc.cpu_fraction.gauge32"), uint32(1000*m.mem.GCCPUFraction), now)

	// metric memory.gc.heap_objects is how many objects are allocated on the heap, it's a key indicator for GC workload
	buf = WriteUint64(buf, prefix, []byte("gc.heap_objects.gauge64"), m.mem.HeapObjects, now)

	// only report points that represent actual runs
	if lastReported != m.mem.NumGC {
		// metric memory.gc.last_duration is the duration of the last GC STW pause in nanoseconds
		buf = WriteUint64(buf, prefix, []byte("gc.last_duration.gauge64"), m.mem.PauseNs[(m.mem.NumGC+255)%256], now)
		m.lastReportedGC = m.mem.NumGC
	}

	// metric memory.gc.pause.p50.us and .p99.us are decayed percentiles of the GC STW pauses
	pauses := m.gcPauses.Snapshot()
	buf = WriteFloat64(buf, prefix, []byte("gc.pause.p50.us"), pauses.P50, now)
	buf = WriteFloat64(buf, prefix, []byte("gc.pause.p99.us"), pauses.P99, now)

	// metric memory.gc.gogc is the current GOGC value (derived from the GOGC environment variable)
	buf = WriteInt32(buf, prefix, []byte("gc.gogc.sgauge32"), int32(gcPercent), now)

	return buf
}

// recordPauses feeds the pauses of all GC runs since the previous report
// into the pause distribution. The runtime only keeps the last 256.
func (m *MemoryReporter) recordPauses() {
	runs := m.mem.NumGC - m.gcCyclesTotal
	if runs > 256 {
		runs = 256
	}
	for i := uint32(0); i < runs; i++ {
		m.gcPauses.Add(int64(m.mem.PauseNs[(m.mem.NumGC-i+255)%256]))
	}
}
