package dashlink

import (
	"sync"

	"github.com/jd3nn1s/dashlink/telemetry"
	log "github.com/sirupsen/logrus"
)

// Dashboard holds the most recent telemetry record. It passes everything on to a view
// and hands changed records to its forwarders.
type Dashboard struct {
	view       Presenter
	forwarders []Forwarder

	mu        sync.Mutex
	telemetry telemetry.Record
	received  bool
}

func NewDashboard(view Presenter) *Dashboard {
	if view == nil {
		view = NopPresenter{}
	}
	return &Dashboard{
		view: view,
	}
}

// AddForwarder must be called before the dashboard receives telemetry.
func (d *Dashboard) AddForwarder(f Forwarder) {
	d.forwarders = append(d.forwarders, f)
}

// Latest returns the most recent record, if any has arrived.
func (d *Dashboard) Latest() (telemetry.Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.telemetry, d.received
}

func (d *Dashboard) OnTelemetry(r telemetry.Record) {
	d.mu.Lock()
	prev := d.telemetry
	changed := !d.received || prev != r
	d.telemetry = r
	d.received = true
	d.mu.Unlock()

	d.view.OnTelemetry(r)
	if !changed {
		return
	}
	for _, fwd := range d.forwarders {
		if err := fwd.Forward(&r, &prev); err != nil {
			log.WithField("err", err).Warn("unable to forward telemetry")
		}
	}
}

func (d *Dashboard) OnLog(level log.Level, msg string) {
	d.view.OnLog(level, msg)
}

func (d *Dashboard) OnConnectionState(s StateChange) {
	d.view.OnConnectionState(s)
}
