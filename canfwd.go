package dashlink

import (
	"context"
	"sync"

	"github.com/jd3nn1s/dashlink/telemetry"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var errNotConnected = errors.New("canbus is not initialized")

// Lamp bits published on the CAN bus.
const (
	LampNight uint8 = 1 << iota
	LampHighBeam
	LampHorn
	LampMaps
	LampTurnRight
	LampTurnLeft
)

// canState is what the cluster was last sent. -1 means nothing has been sent yet.
type canState struct {
	speed      int
	battery    int
	engineTemp int
	lamps      int
}

var unpublished = canState{speed: -1, battery: -1, engineTemp: -1, lamps: -1}

// CANForwarder republishes telemetry on a CAN bus for an instrument cluster. A value
// is sent when it differs from what the cluster last received, and everything is
// sent again after the bus reopens.
type CANForwarder struct {
	canSensorBus *canBusRetryable

	mu        sync.Mutex
	published canState
}

func NewCANForwarder(portName string) *CANForwarder {
	fwd := &CANForwarder{
		published: unpublished,
	}
	fwd.canSensorBus = &canBusRetryable{
		portName: portName,
		opened:   fwd.republish,
	}
	return fwd
}

// Start keeps the bus connected until ctx is done.
func (fwd *CANForwarder) Start(ctx context.Context) error {
	err := retry(ctx, fwd.canSensorBus)
	log.WithField("err", err).Info("canbus done")
	return err
}

func (fwd *CANForwarder) republish() {
	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	fwd.published = unpublished
}

// Forward compares against the last published values, not prevTelemetry, so values
// that changed while the bus was down still reach the cluster.
func (fwd *CANForwarder) Forward(newTelemetry *telemetry.Record, prevTelemetry *telemetry.Record) error {
	canBus := fwd.canSensorBus.CANBus()
	if canBus == nil {
		log.Debug("canbus not connected, holding telemetry")
		return nil
	}

	fwd.mu.Lock()
	defer fwd.mu.Unlock()

	if v := int(newTelemetry.Speed); fwd.published.speed != v {
		if err := canBus.SendSpeed(v); err != nil {
			return errors.Wrapf(err, "unable to send speed to CAN bus")
		}
		fwd.published.speed = v
	}
	if v := int(newTelemetry.Battery); fwd.published.battery != v {
		if err := canBus.SendBattery(v); err != nil {
			return errors.Wrapf(err, "unable to send battery to CAN bus")
		}
		fwd.published.battery = v
	}
	if v := int(newTelemetry.EngineTemp); fwd.published.engineTemp != v {
		if err := canBus.SendEngineTemp(newTelemetry.EngineTempCelsius()); err != nil {
			return errors.Wrapf(err, "unable to send engine temperature to CAN bus")
		}
		fwd.published.engineTemp = v
	}
	if v := int(lamps(newTelemetry)); fwd.published.lamps != v {
		if err := canBus.SendLamps(uint8(v)); err != nil {
			return errors.Wrapf(err, "unable to send lamps to CAN bus")
		}
		fwd.published.lamps = v
	}
	return nil
}

func lamps(r *telemetry.Record) uint8 {
	var l uint8
	if r.NightMode {
		l |= LampNight
	}
	if r.HighBeam {
		l |= LampHighBeam
	}
	if r.Horn {
		l |= LampHorn
	}
	if r.MapsActive {
		l |= LampMaps
	}
	switch r.TurnSignal {
	case telemetry.TurnRight:
		l |= LampTurnRight
	case telemetry.TurnLeft:
		l |= LampTurnLeft
	case telemetry.TurnHazard:
		l |= LampTurnRight | LampTurnLeft
	}
	return l
}
