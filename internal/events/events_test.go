package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetKeepsInsertionOrderAndDropsDuplicates(t *testing.T) {
	s := NewSet(DoorOpen, PedalPressed)
	s.Add(BrakeUnavailable)
	s.Add(DoorOpen)

	assert.Equal(t, []EventName{DoorOpen, PedalPressed, BrakeUnavailable}, s.Names())
	assert.Equal(t, 3, s.Len())
}

func TestSetRemove(t *testing.T) {
	s := NewSet(WrongCarMode, PCMDisable, ButtonEnable)

	assert.True(t, s.Remove(PCMDisable))
	assert.False(t, s.Remove(PCMDisable))
	assert.False(t, s.Contains(PCMDisable))
	assert.Equal(t, []string{"wrongCarMode", "buttonEnable"}, s.Strings())
}

func TestSetMerge(t *testing.T) {
	var s Set
	s.Add(TurningIndicatorOn)
	s.Merge(NewSet(BelowSteerSpeed, TurningIndicatorOn))
	s.Merge(nil)

	assert.Equal(t, []EventName{TurningIndicatorOn, BelowSteerSpeed}, s.Names())
}

func TestNamesReturnsCopy(t *testing.T) {
	s := NewSet(DoorOpen)
	names := s.Names()
	names[0] = PedalPressed

	assert.True(t, s.Contains(DoorOpen))
	assert.False(t, s.Contains(PedalPressed))
}
