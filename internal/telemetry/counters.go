package telemetry

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// Counters tracks broadcast volume and loop health for the diagnostics
// surface. All fields are safe for concurrent use.
type Counters struct {
	bytesSent             atomic.Uint64
	entitiesSent          atomic.Uint64
	snapshotsSent         atomic.Uint64
	tickDurationMillis    atomic.Int64
	lastBroadcastBytes    atomic.Uint64
	lastBroadcastEntities atomic.Uint64
	debug                 bool
}

// Snapshot is the JSON view of the counters.
type Snapshot struct {
	BytesSent     uint64 `json:"bytesSent"`
	EntitiesSent  uint64 `json:"entitiesSent"`
	SnapshotsSent uint64 `json:"snapshotsSent"`
	TickDuration  int64  `json:"tickDurationMillis"`
}

// NewCounters builds a counter set, enabling debug prints when
// DEBUG_TELEMETRY=1.
func NewCounters() *Counters {
	c := &Counters{}
	if os.Getenv("DEBUG_TELEMETRY") == "1" {
		c.debug = true
	}
	return c
}

// RecordBroadcast notes one outgoing snapshot frame.
func (c *Counters) RecordBroadcast(bytes, entities int) {
	if c == nil {
		return
	}
	if bytes < 0 {
		bytes = 0
	}
	if entities < 0 {
		entities = 0
	}
	c.bytesSent.Add(uint64(bytes))
	c.entitiesSent.Add(uint64(entities))
	c.snapshotsSent.Add(1)
	c.lastBroadcastBytes.Store(uint64(bytes))
	c.lastBroadcastEntities.Store(uint64(entities))
}

// RecordTickDuration notes how long the latest simulation tick took.
func (c *Counters) RecordTickDuration(duration time.Duration) {
	if c == nil {
		return
	}
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	c.tickDurationMillis.Store(millis)
	if c.debug {
		fmt.Printf(
			"[telemetry] tick=%dms bytes=%d totalBytes=%d entities=%d totalEntities=%d\n",
			millis,
			c.lastBroadcastBytes.Load(),
			c.bytesSent.Load(),
			c.lastBroadcastEntities.Load(),
			c.entitiesSent.Load(),
		)
	}
}

// DebugEnabled reports whether debug printing is active.
func (c *Counters) DebugEnabled() bool {
	return c != nil && c.debug
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		BytesSent:     c.bytesSent.Load(),
		EntitiesSent:  c.entitiesSent.Load(),
		SnapshotsSent: c.snapshotsSent.Load(),
		TickDuration:  c.tickDurationMillis.Load(),
	}
}
