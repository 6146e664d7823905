package fingerprint

import (
	"sync"

	"vehicle-interface/internal/types"
)

// Identifiers at or above this are extended frames and never part of a fingerprint.
const maxStandardID = 0x800

// Diagnostic request/response identifiers show up when a tester is attached.
var ignoredIDs = map[uint32]bool{
	0x7df: true,
	0x7e0: true,
	0x7e8: true,
}

// Collector accumulates frames from concurrent bus listeners during the
// detection window.
type Collector struct {
	mu     sync.Mutex
	buses  [types.BusCount]Fingerprint
	frames uint64
}

func NewCollector() *Collector {
	c := &Collector{}
	for i := range c.buses {
		c.buses[i] = Fingerprint{}
	}
	return c
}

// Observe records one frame. Frames on unknown buses, extended frames and
// diagnostic traffic are dropped. The latest payload length wins.
func (c *Collector) Observe(bus types.Bus, id uint32, length int) {
	if !bus.Valid() || id >= maxStandardID || ignoredIDs[id] {
		return
	}
	c.mu.Lock()
	c.buses[bus][id] = length
	c.frames++
	c.mu.Unlock()
}

// Frames is the number of accepted frames so far.
func (c *Collector) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Snapshot returns an immutable copy of what has been collected.
func (c *Collector) Snapshot() Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return NewSet(c.buses[:]...)
}

// Reset clears the collector for a new detection window.
func (c *Collector) Reset() {
	c.mu.Lock()
	for i := range c.buses {
		c.buses[i] = Fingerprint{}
	}
	c.frames = 0
	c.mu.Unlock()
}
