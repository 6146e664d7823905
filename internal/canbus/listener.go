// Package canbus connects CAN interfaces to the fingerprint collector. The
// n-th interface handed to a Listener is bus n.
package canbus

import (
	"context"
	"io"
	"sync"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"vehicle-interface/internal/logger"
	"vehicle-interface/internal/types"
)

// Observer receives every standard data frame seen on a bus.
type Observer interface {
	Observe(bus types.Bus, id uint32, length int)
}

type Listener struct {
	buses    []*can.Bus
	observer Observer
	logger   *logger.Logger

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// OpenSocketCAN opens one socketcan interface per name.
func OpenSocketCAN(names []string) ([]*can.Bus, error) {
	if len(names) > types.BusCount {
		return nil, errors.Errorf("at most %d buses, got %d", types.BusCount, len(names))
	}
	buses := make([]*can.Bus, 0, len(names))
	for _, name := range names {
		bus, err := can.NewBusForInterfaceWithName(name)
		if err != nil {
			for _, b := range buses {
				b.Disconnect()
			}
			return nil, errors.Wrapf(err, "opening CAN interface '%s'", name)
		}
		buses = append(buses, bus)
	}
	return buses, nil
}

// OpenSLCANBuses opens one serial adapter per port.
func OpenSLCANBuses(ports []string, bitrate int) ([]*can.Bus, error) {
	if len(ports) > types.BusCount {
		return nil, errors.Errorf("at most %d buses, got %d", types.BusCount, len(ports))
	}
	buses := make([]*can.Bus, 0, len(ports))
	for _, port := range ports {
		rwc, err := OpenSLCAN(port, bitrate)
		if err != nil {
			for _, b := range buses {
				b.Disconnect()
			}
			return nil, err
		}
		buses = append(buses, can.NewBus(rwc))
	}
	return buses, nil
}

func NewListener(buses []*can.Bus, observer Observer, l *logger.Logger) *Listener {
	if l == nil {
		l = logger.Nop()
	}
	ln := &Listener{buses: buses, observer: observer, logger: l, stop: make(chan struct{})}
	for i, bus := range buses {
		idx := types.Bus(i)
		bus.SubscribeFunc(func(f can.Frame) { ln.handle(idx, f) })
	}
	return ln
}

func (l *Listener) handle(bus types.Bus, f can.Frame) {
	if f.ID&(unix.CAN_EFF_FLAG|unix.CAN_RTR_FLAG|unix.CAN_ERR_FLAG) != 0 {
		return
	}
	l.observer.Observe(bus, f.ID&unix.CAN_SFF_MASK, int(f.Length))
}

// Start reads every bus in its own goroutine until ctx is cancelled or Stop
// is called.
func (l *Listener) Start(ctx context.Context) {
	for i, bus := range l.buses {
		l.wg.Add(1)
		go func(idx types.Bus, bus *can.Bus) {
			defer l.wg.Done()
			err := bus.ConnectAndPublish()
			if err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
				l.logger.Warnf("%s stopped: %v", idx, err)
			}
		}(types.Bus(i), bus)
	}
	go func() {
		select {
		case <-ctx.Done():
			l.Stop()
		case <-l.stop:
		}
	}()
}

// Stop disconnects every bus and waits for the readers to exit.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		for _, bus := range l.buses {
			bus.Disconnect()
		}
	})
	l.wg.Wait()
}
