package events

// EventName identifies a discrete car event handed to the controller.
type EventName string

const (
	ButtonEnable       EventName = "buttonEnable"
	ButtonCancel       EventName = "buttonCancel"
	BelowSteerSpeed    EventName = "belowSteerSpeed"
	TurningIndicatorOn EventName = "turningIndicatorOn"
	BrakeUnavailable   EventName = "brakeUnavailable"

	TirePressureLowFL EventName = "fl"
	TirePressureLowFR EventName = "fr"
	TirePressureLowRL EventName = "rl"
	TirePressureLowRR EventName = "rr"

	// Produced by the common alert policy.
	PedalPressed         EventName = "pedalPressed"
	WrongCarMode         EventName = "wrongCarMode"
	PCMEnable            EventName = "pcmEnable"
	PCMDisable           EventName = "pcmDisable"
	DoorOpen             EventName = "doorOpen"
	SeatbeltNotLatched   EventName = "seatbeltNotLatched"
	WrongGear            EventName = "wrongGear"
	ReverseGear          EventName = "reverseGear"
	ESPDisabled          EventName = "espDisabled"
	BrakeHold            EventName = "brakeHold"
	SteerTempUnavailable EventName = "steerTempUnavailable"
)

// Set is an insertion-ordered set of event names. The zero value is ready to use.
type Set struct {
	names []EventName
}

func NewSet(names ...EventName) *Set {
	s := &Set{}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add appends name unless it is already present.
func (s *Set) Add(name EventName) {
	if s.Contains(name) {
		return
	}
	s.names = append(s.names, name)
}

// Merge adds every member of other in its order.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, n := range other.names {
		s.Add(n)
	}
}

// Remove drops name and reports whether it was present.
func (s *Set) Remove(name EventName) bool {
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Set) Contains(name EventName) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

func (s *Set) Len() int {
	return len(s.names)
}

// Names returns a copy of the members in insertion order.
func (s *Set) Names() []EventName {
	out := make([]EventName, len(s.names))
	copy(out, s.names)
	return out
}

// Strings is Names as plain strings, for publishing.
func (s *Set) Strings() []string {
	out := make([]string, len(s.names))
	for i, n := range s.names {
		out[i] = string(n)
	}
	return out
}
