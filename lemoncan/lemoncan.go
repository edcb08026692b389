package lemoncan

import (
	"context"
	"encoding/binary"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	frameSpeed      uint32 = 0x103
	frameBattery           = 0x104
	frameEngineTemp        = 0x105
	frameLamps             = 0x106
)

type CANBus interface {
	SubscribeFunc(can.HandlerFunc)
	ConnectAndPublish() error
	Disconnect() error
	Publish(can.Frame) error
}

var newBus = func(portName string) (CANBus, error) {
	bus, err := can.NewBusForInterfaceWithName(portName)
	if err != nil {
		return nil, err
	}
	return bus, nil
}

// Connection publishes dashboard values onto a SocketCAN interface.
type Connection struct {
	bus CANBus
}

func Connect(portName string) (*Connection, error) {
	bus, err := newBus(portName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open can interface %s", portName)
	}

	c := &Connection{
		bus: bus,
	}
	return c, nil
}

// Start runs the bus until it fails or ctx is done.
func (c *Connection) Start(ctx context.Context) error {
	c.bus.SubscribeFunc(c.handleFrame)
	log.Info("CAN bus opened and subscribed")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			log.Infof("stopping can bus: %v", ctx.Err())
			if err := c.bus.Disconnect(); err != nil {
				log.WithField("err", err).Warn("unable to disconnect canbus after context")
			}
		case <-stop:
		}
	}()

	return c.bus.ConnectAndPublish()
}

func (c *Connection) Close() error {
	if c.bus == nil {
		return errors.New("can bus not connected")
	}
	return c.bus.Disconnect()
}

func (c *Connection) SendSpeed(speed int) error {
	log.WithField("speed", speed).Debug("sending speed over canbus")
	return c.publishUint8(frameSpeed, speed)
}

func (c *Connection) SendBattery(percent int) error {
	log.WithField("battery", percent).Debug("sending battery over canbus")
	return c.publishUint8(frameBattery, percent)
}

// SendEngineTemp sends degrees Celsius as a signed 16 bit little endian value.
func (c *Connection) SendEngineTemp(celsius int) error {
	log.WithField("celsius", celsius).Debug("sending engine temperature over canbus")
	data := [8]uint8{}
	binary.LittleEndian.PutUint16(data[0:2], uint16(int16(celsius)))
	return c.publish(can.Frame{
		ID:     frameEngineTemp,
		Length: 2,
		Data:   data,
	})
}

func (c *Connection) SendLamps(lamps uint8) error {
	log.WithField("lamps", lamps).Debug("sending lamps over canbus")
	return c.publishUint8(frameLamps, int(lamps))
}

func (c *Connection) publishUint8(id uint32, v int) error {
	if v < 0 || v > 0xFF {
		return errors.Errorf("value %d out of range for frame %#x", v, id)
	}
	return c.publish(can.Frame{
		ID:     id,
		Length: 1,
		Data:   [8]uint8{uint8(v)},
	})
}

func (c *Connection) publish(f can.Frame) error {
	if c.bus == nil {
		return errors.New("can bus not connected")
	}
	return c.bus.Publish(f)
}

// handleFrame logs traffic from other nodes, nothing on the bus is consumed.
func (c *Connection) handleFrame(frame can.Frame) {
	log.WithField("canID", frame.ID).
		WithField("length", frame.Length).
		Debug("received canbus frame")
}
