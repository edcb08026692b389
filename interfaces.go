package dashlink

import (
	"context"

	"github.com/jd3nn1s/dashlink/telemetry"
	log "github.com/sirupsen/logrus"
)

// Presenter renders what the connection loops produce. It is called synchronously
// from those loops and must not block.
type Presenter interface {
	OnTelemetry(r telemetry.Record)
	OnLog(level log.Level, msg string)
	OnConnectionState(s StateChange)
}

type Forwarder interface {
	Forward(newTelemetry *telemetry.Record, prevTelemetry *telemetry.Record) error
}

type CANBus interface {
	Close() error
	Start(context.Context) error
	SendSpeed(int) error
	SendBattery(int) error
	SendEngineTemp(int) error
	SendLamps(uint8) error
}

// NopPresenter discards everything.
type NopPresenter struct{}

func (NopPresenter) OnTelemetry(telemetry.Record)   {}
func (NopPresenter) OnLog(log.Level, string)        {}
func (NopPresenter) OnConnectionState(StateChange) {}
