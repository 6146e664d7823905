package canbus

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	"go.bug.st/serial"
	"golang.org/x/sys/unix"
)

const slcanBaudRate = 115200

var ErrMalformedFrame = errors.New("malformed slcan frame")

var slcanBitrates = map[int]string{
	10000:   "S0",
	20000:   "S1",
	50000:   "S2",
	100000:  "S3",
	125000:  "S4",
	250000:  "S5",
	500000:  "S6",
	800000:  "S7",
	1000000: "S8",
}

// SLCAN speaks the Lawicel ASCII protocol to a serial CAN adapter.
type SLCAN struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
	wmu    sync.Mutex
}

var _ can.ReadWriteCloser = (*SLCAN)(nil)

// OpenSLCAN opens a serial adapter and puts it on the bus at bitrate.
func OpenSLCAN(portName string, bitrate int) (*SLCAN, error) {
	sp, err := serial.Open(portName, &serial.Mode{
		BaudRate: slcanBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening serial port '%s'", portName)
	}
	if err := sp.ResetInputBuffer(); err != nil {
		sp.Close()
		return nil, errors.Wrapf(err, "resetting input buffer on '%s'", portName)
	}

	s, err := NewSLCAN(sp, bitrate)
	if err != nil {
		sp.Close()
		return nil, errors.Wrapf(err, "initializing adapter on '%s'", portName)
	}
	return s, nil
}

// NewSLCAN sends the setup sequence over port: close any open channel, set
// the bitrate, open.
func NewSLCAN(port io.ReadWriteCloser, bitrate int) (*SLCAN, error) {
	speed, ok := slcanBitrates[bitrate]
	if !ok {
		return nil, errors.Errorf("unsupported bitrate %d", bitrate)
	}
	s := &SLCAN{port: port, reader: bufio.NewReader(port)}
	for _, cmd := range []string{"C", speed, "O"} {
		if err := s.command(cmd); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *SLCAN) command(cmd string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := io.WriteString(s.port, cmd+"\r")
	return errors.Wrapf(err, "writing '%s'", cmd)
}

// ReadFrame blocks until the adapter delivers a frame. Acknowledgements and
// lines that are not frames are skipped.
func (s *SLCAN) ReadFrame(frame *can.Frame) error {
	for {
		line, err := s.reader.ReadBytes('\r')
		if err != nil {
			return err
		}
		line = line[:len(line)-1]
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case 't', 'T', 'r', 'R':
		default:
			continue
		}
		f, err := ParseFrame(line)
		if err != nil {
			continue
		}
		*frame = f
		return nil
	}
}

// Read returns raw adapter output that has not been consumed as frames.
func (s *SLCAN) Read(b []byte) (int, error) {
	return s.reader.Read(b)
}

// Write sends raw bytes to the adapter.
func (s *SLCAN) Write(b []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.port.Write(b)
}

func (s *SLCAN) WriteFrame(frame can.Frame) error {
	line, err := FormatFrame(frame)
	if err != nil {
		return err
	}
	return s.command(line)
}

// Close takes the adapter off the bus and releases the port.
func (s *SLCAN) Close() error {
	s.command("C")
	return s.port.Close()
}

// ParseFrame decodes one SLCAN frame line without its trailing carriage
// return. Extended and remote frames carry the socketcan flag bits in ID.
func ParseFrame(line []byte) (can.Frame, error) {
	var f can.Frame
	if len(line) == 0 {
		return f, ErrMalformedFrame
	}

	idLen := 3
	var flags uint32
	switch line[0] {
	case 't':
	case 'r':
		flags = unix.CAN_RTR_FLAG
	case 'T':
		idLen, flags = 8, unix.CAN_EFF_FLAG
	case 'R':
		idLen, flags = 8, unix.CAN_EFF_FLAG|unix.CAN_RTR_FLAG
	default:
		return f, errors.Wrapf(ErrMalformedFrame, "unknown type %q", line[0])
	}
	if len(line) < 1+idLen+1 {
		return f, errors.Wrap(ErrMalformedFrame, "short line")
	}

	id, err := strconv.ParseUint(string(line[1:1+idLen]), 16, 32)
	if err != nil {
		return f, errors.Wrap(ErrMalformedFrame, "bad id")
	}
	dlc := line[1+idLen]
	if dlc < '0' || dlc > '8' {
		return f, errors.Wrapf(ErrMalformedFrame, "bad length %q", dlc)
	}
	f.ID = uint32(id) | flags
	f.Length = dlc - '0'

	if flags&unix.CAN_RTR_FLAG != 0 {
		return f, nil
	}
	data := line[2+idLen:]
	if len(data) < 2*int(f.Length) {
		return f, errors.Wrap(ErrMalformedFrame, "short data")
	}
	if _, err := hex.Decode(f.Data[:f.Length], data[:2*int(f.Length)]); err != nil {
		return f, errors.Wrap(ErrMalformedFrame, "bad data")
	}
	return f, nil
}

// FormatFrame encodes a frame as an SLCAN transmit command.
func FormatFrame(f can.Frame) (string, error) {
	if f.Length > 8 {
		return "", errors.Wrapf(ErrMalformedFrame, "length %d", f.Length)
	}
	rtr := f.ID&unix.CAN_RTR_FLAG != 0
	var line string
	if f.ID&unix.CAN_EFF_FLAG != 0 {
		kind := "T"
		if rtr {
			kind = "R"
		}
		line = fmt.Sprintf("%s%08X%d", kind, f.ID&unix.CAN_EFF_MASK, f.Length)
	} else {
		kind := "t"
		if rtr {
			kind = "r"
		}
		line = fmt.Sprintf("%s%03X%d", kind, f.ID&unix.CAN_SFF_MASK, f.Length)
	}
	if !rtr {
		line += fmt.Sprintf("%X", f.Data[:f.Length])
	}
	return line, nil
}
