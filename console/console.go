package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jd3nn1s/dashlink"
	"github.com/jd3nn1s/dashlink/telemetry"
	log "github.com/sirupsen/logrus"
)

const (
	boxWidth        = 58
	timestampFormat = "15:04:05"
)

// Presenter writes a text dashboard: a box per telemetry record, plus a line for
// every connection change and forwarded log entry.
type Presenter struct {
	// ShowTelemetry enables the telemetry box.
	ShowTelemetry bool

	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func New(w io.Writer) *Presenter {
	return &Presenter{
		ShowTelemetry: true,
		w:             w,
		now:           time.Now,
	}
}

var _ dashlink.Presenter = (*Presenter)(nil)

func (p *Presenter) OnTelemetry(r telemetry.Record) {
	if !p.ShowTelemetry {
		return
	}
	p.write(Box(r))
}

func (p *Presenter) OnLog(level log.Level, msg string) {
	p.write(fmt.Sprintf("[%s] [%s] %s\n", p.timestamp(), strings.ToUpper(level.String()), msg))
}

func (p *Presenter) OnConnectionState(s dashlink.StateChange) {
	var msg string
	switch s.State {
	case dashlink.StateConnecting:
		msg = fmt.Sprintf("connecting to %s", s.Peer)
		if !s.Deadline.IsZero() {
			msg += fmt.Sprintf(" (timeout %s)", s.Deadline.Sub(p.now()).Round(time.Second))
		}
	case dashlink.StateConnected:
		msg = fmt.Sprintf("connected to %s", s.Peer)
	case dashlink.StateListening:
		msg = fmt.Sprintf("listening on %s", s.Peer)
	case dashlink.StateServing:
		msg = fmt.Sprintf("serving %s", s.Peer)
	default:
		msg = s.State.String()
	}
	p.write(fmt.Sprintf("[%s] %s\n", p.timestamp(), msg))
}

func (p *Presenter) timestamp() string {
	return p.now().Format(timestampFormat)
}

func (p *Presenter) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.w, s)
}

// Box renders r as a framed table.
func Box(r telemetry.Record) string {
	rows := [][2]string{
		{"Speed", fmt.Sprintf("%3d (RPM: ~%d)", r.Speed, r.RPM())},
		{"Throttle", fmt.Sprintf("%3d", r.Throttle)},
		{"Odometer", fmt.Sprintf("%5d miles (%.1f km)", r.TotalDistance, r.DistanceKm())},
		{"Battery", fmt.Sprintf("%3d%%", r.Battery)},
		{"Engine Temp", fmt.Sprintf("%3d (display: %d°C)", r.EngineTemp, r.EngineTempCelsius())},
		{"Battery Temp", fmt.Sprintf("%3d", r.BatteryTemp)},
		{"State", r.Gear.String()},
		{"Mode", r.DriveMode.String()},
		{"Turn Signal", r.TurnSignal.String()},
		{"Night Mode", onOff(r.NightMode)},
		{"High Beam", onOff(r.HighBeam)},
		{"Horn", onOff(r.Horn)},
		{"Alert", fmt.Sprintf("%d", r.Alert)},
		{"Maps Switch", onOff(r.MapsActive)},
	}

	var b strings.Builder
	b.WriteString("\n╔" + strings.Repeat("═", boxWidth) + "╗\n")
	boxLine(&b, center("TELEMETRY DATA RECEIVED"))
	b.WriteString("╠" + strings.Repeat("═", boxWidth) + "╣\n")
	for _, row := range rows {
		boxLine(&b, fmt.Sprintf(" %-15s %s", row[0]+":", row[1]))
	}
	b.WriteString("╚" + strings.Repeat("═", boxWidth) + "╝\n")
	return b.String()
}

// Banner writes a titled block of key/value lines, used at startup and shutdown.
func Banner(w io.Writer, title string, rows [][2]string) {
	rule := strings.Repeat("=", 42)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, rule)
	for _, row := range rows {
		fmt.Fprintf(w, "  %-12s%s\n", row[0]+":", row[1])
	}
	fmt.Fprintln(w, rule)
}

func boxLine(b *strings.Builder, text string) {
	pad := boxWidth - utf8.RuneCountInString(text)
	if pad < 0 {
		pad = 0
	}
	b.WriteString("║" + text + strings.Repeat(" ", pad) + "║\n")
}

func center(text string) string {
	left := (boxWidth - utf8.RuneCountInString(text)) / 2
	return strings.Repeat(" ", left) + text
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
