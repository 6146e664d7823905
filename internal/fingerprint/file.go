package fingerprint

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"vehicle-interface/internal/types"
)

var ErrInvalidFile = errors.New("invalid fingerprint file")

// File is the on-disk form of a recorded fingerprint.
//
//	model: PALISADE
//	firmware:
//	  eps: "LX2 MDPS C 1.00 1.05 56310S8020,4"
//	buses:
//	  0: {593: 8, 1056: 8}
//	  1: {}
type File struct {
	Model    string              `yaml:"model,omitempty"`
	Firmware map[string]string   `yaml:"firmware,omitempty"`
	Buses    map[int]Fingerprint `yaml:"buses"`
}

// Set validates the bus indexes and returns the immutable fingerprint set.
func (f File) Set() (Set, error) {
	var buses [types.BusCount]Fingerprint
	for bus, fp := range f.Buses {
		if !types.Bus(bus).Valid() {
			return Set{}, errors.Wrapf(ErrInvalidFile, "bus %d out of range", bus)
		}
		buses[bus] = fp
	}
	return NewSet(buses[:]...), nil
}

func LoadFile(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "opening fingerprint file '%s'", path)
	}
	defer fh.Close()

	var f File
	if err := yaml.NewDecoder(fh).Decode(&f); err != nil {
		return File{}, errors.Wrapf(ErrInvalidFile, "decoding '%s': %v", path, err)
	}
	if _, err := f.Set(); err != nil {
		return File{}, err
	}
	return f, nil
}

// NewFile captures a fingerprint set for writing.
func NewFile(model string, firmware map[string]string, s Set) File {
	f := File{
		Model:    model,
		Firmware: firmware,
		Buses:    make(map[int]Fingerprint, types.BusCount),
	}
	for i := 0; i < types.BusCount; i++ {
		f.Buses[i] = s.Bus(types.Bus(i))
	}
	return f
}

func SaveFile(path string, f File) error {
	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating fingerprint file '%s'", path)
	}
	defer fh.Close()

	enc := yaml.NewEncoder(fh)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return errors.Wrap(err, "encoding fingerprint")
	}
	return errors.Wrap(enc.Close(), "flushing fingerprint")
}
