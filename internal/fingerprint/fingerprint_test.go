package fingerprint

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-interface/internal/types"
)

func TestSetIsImmutable(t *testing.T) {
	bus0 := Fingerprint{MsgSCC11: 8}
	s := NewSet(bus0)

	bus0[MsgMDPS12] = 8
	assert.False(t, s.Has(types.Bus0, MsgMDPS12), "set must not alias constructor input")

	got := s.Bus(types.Bus0)
	got[MsgSAS11] = 5
	assert.False(t, s.Has(types.Bus0, MsgSAS11), "set must not alias accessor output")

	assert.True(t, s.Has(types.Bus0, MsgSCC11))
	assert.False(t, s.Has(types.BusNone, MsgSCC11))
	assert.False(t, s.Has(types.Bus(7), MsgSCC11))
	assert.Equal(t, 1, s.Len())
}

func TestFingerprintIDsAreSorted(t *testing.T) {
	fp := Fingerprint{MsgSCC11: 8, MsgMDPS12: 8, MsgSAS11: 5, MsgLCA11: 8}
	assert.Equal(t, []uint32{MsgMDPS12, MsgSAS11, MsgSCC11, MsgLCA11}, fp.IDs())
	assert.Empty(t, Fingerprint(nil).IDs())
}

func TestCollectorFiltersFrames(t *testing.T) {
	c := NewCollector()
	c.Observe(types.Bus0, MsgSCC11, 8)
	c.Observe(types.Bus1, MsgLCANMarker, 8)
	c.Observe(types.Bus2, 0x18DAF110, 8) // extended
	c.Observe(types.Bus0, 0x7e8, 8)      // diagnostic response
	c.Observe(types.BusNone, MsgSAS11, 5)

	s := c.Snapshot()
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(types.Bus0, MsgSCC11))
	assert.True(t, s.Has(types.Bus1, MsgLCANMarker))
	assert.Equal(t, uint64(2), c.Frames())

	c.Reset()
	assert.Equal(t, 0, c.Snapshot().Len())
	assert.Equal(t, 2, s.Len(), "snapshot survives reset")
}

func TestCollectorConcurrentObserve(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for bus := 0; bus < types.BusCount; bus++ {
		wg.Add(1)
		go func(b types.Bus) {
			defer wg.Done()
			for id := uint32(0x100); id < 0x200; id++ {
				c.Observe(b, id, 8)
			}
		}(types.Bus(bus))
	}
	wg.Wait()

	assert.Equal(t, 3*0x100, c.Snapshot().Len())
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fp.yaml")
	s := NewSet(Fingerprint{MsgSCC11: 8, MsgMDPS12: 8}, Fingerprint{MsgSAS11: 5})

	require.NoError(t, SaveFile(path, NewFile("PALISADE", map[string]string{"eps": "a,b"}, s)))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PALISADE", f.Model)
	assert.Equal(t, "a,b", f.Firmware["eps"])

	loaded, err := f.Set()
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestLoadFileRejectsUnknownBus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buses:\n  5: {1056: 8}\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFile))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
