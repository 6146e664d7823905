package fingerprint

import (
	"sort"

	"vehicle-interface/internal/types"
)

// Message identifiers used for topology detection.
const (
	MsgMDPS12     uint32 = 593  // power steering status
	MsgSAS11      uint32 = 688  // steering angle sensor
	MsgSCC11      uint32 = 1056 // adaptive cruise status
	MsgLCANMarker uint32 = 1296 // present on bus1 when an L-CAN harness bridges bus1 onto bus0
	MsgLCA11      uint32 = 0x58b
	MsgESP11      uint32 = 1151 // auto hold
	MsgEMS11      uint32 = 608
	MsgEMS16      uint32 = 809
	MsgSCC13      uint32 = 1290
	MsgSCC14      uint32 = 905
)

// Fingerprint maps a message identifier to the payload length it was seen with.
type Fingerprint map[uint32]int

func (f Fingerprint) clone() Fingerprint {
	out := make(Fingerprint, len(f))
	for id, l := range f {
		out[id] = l
	}
	return out
}

// IDs returns the identifiers in ascending order.
func (f Fingerprint) IDs() []uint32 {
	ids := make([]uint32, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Set holds the per-bus fingerprints observed during the detection window.
// It is immutable: constructors copy their input and accessors return copies.
type Set struct {
	buses [types.BusCount]Fingerprint
}

// NewSet builds a Set from up to three per-bus fingerprints, bus0 first.
// Extra arguments are ignored.
func NewSet(buses ...Fingerprint) Set {
	var s Set
	for i := range s.buses {
		if i < len(buses) && buses[i] != nil {
			s.buses[i] = buses[i].clone()
		} else {
			s.buses[i] = Fingerprint{}
		}
	}
	return s
}

// Has reports whether id was observed on bus. Out of range buses report false.
func (s Set) Has(bus types.Bus, id uint32) bool {
	if !bus.Valid() || s.buses[bus] == nil {
		return false
	}
	_, ok := s.buses[bus][id]
	return ok
}

// Bus returns a copy of the fingerprint for bus.
func (s Set) Bus(bus types.Bus) Fingerprint {
	if !bus.Valid() || s.buses[bus] == nil {
		return Fingerprint{}
	}
	return s.buses[bus].clone()
}

// Len is the number of (bus, id) pairs observed.
func (s Set) Len() int {
	n := 0
	for _, f := range s.buses {
		n += len(f)
	}
	return n
}
