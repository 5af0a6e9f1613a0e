package fetch

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpDownload = "download"
	OpExtract  = "extract"
)

// OperationStats holds aggregated figures for a single operation type.
type OperationStats struct {
	Count      int64
	TotalBytes int64
	TotalTime  time.Duration
	MinTime    time.Duration
	MaxTime    time.Duration
}

// OperationSnapshot provides computed stats from raw figures.
type OperationSnapshot struct {
	Count       int64
	TotalBytes  int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	// BytesPerSec is the mean throughput over the operation's total time.
	BytesPerSec float64
}

// Snapshot represents the full run statistics at a point in time.
type Snapshot struct {
	ElapsedSeconds float64
	Download       *OperationSnapshot
	Extract        *OperationSnapshot
}

// Collector aggregates in-memory transfer statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationStats
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationStats),
	}
}

// Record records one completed operation.
func (c *Collector) Record(op string, duration time.Duration, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.ops[op]
	if !ok {
		m = &OperationStats{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}

	m.Count++
	m.TotalBytes += bytes
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationStats) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalBytes:  m.TotalBytes,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
	if m.TotalTime > 0 {
		snap.BytesPerSec = float64(m.TotalBytes) / m.TotalTime.Seconds()
	}
	return snap
}

// Snapshot returns a point-in-time snapshot of all statistics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		ElapsedSeconds: time.Since(c.startTime).Seconds(),
		Download:       snapshotOp(c.ops[OpDownload]),
		Extract:        snapshotOp(c.ops[OpExtract]),
	}
}
