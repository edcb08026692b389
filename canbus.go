package dashlink

import (
	"context"
	"sync"

	"github.com/jd3nn1s/dashlink/lemoncan"
)

var canBusConnect = func(p string) (CANBus, error) {
	c, err := lemoncan.Connect(p)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type canBusRetryable struct {
	portName string
	// opened, if set, is called after every successful Open.
	opened func()

	mu sync.Mutex
	c  CANBus
}

func (bus *canBusRetryable) Open() error {
	c, err := canBusConnect(bus.portName)
	if err != nil {
		return err
	}
	bus.mu.Lock()
	bus.c = c
	bus.mu.Unlock()
	if bus.opened != nil {
		bus.opened()
	}
	return nil
}

func (bus *canBusRetryable) Close() error {
	bus.mu.Lock()
	c := bus.c
	bus.c = nil
	bus.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

func (bus *canBusRetryable) Start(ctx context.Context) error {
	c := bus.CANBus()
	if c == nil {
		return errNotConnected
	}
	return c.Start(ctx)
}

func (bus *canBusRetryable) Name() string {
	return "canbus"
}

// CANBus is the open bus, or nil between connections.
func (bus *canBusRetryable) CANBus() CANBus {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.c
}
