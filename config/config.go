// Package config loads producer and consumer settings from TOML files. Command line
// flags are applied on top by the binaries.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jd3nn1s/dashlink/transport"
	"github.com/pkg/errors"
)

const (
	DefaultIntervalMs     = 150
	DefaultConnectTimeout = 5 * time.Second
	DefaultCooldown       = 300 * time.Millisecond
	DefaultSocketCooldown = 200 * time.Millisecond
	DefaultProbeInterval  = 3 * time.Second
	DefaultListen         = "127.0.0.1:7001"

	maxChannel = 30
)

// Error is a fatal configuration problem found before any networking starts.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Duration lets TOML files use strings such as "300ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Producer struct {
	Transport transport.Kind `toml:"transport"`
	Addr      string         `toml:"addr"`
	Channel   uint8          `toml:"channel"`
	Baud      int            `toml:"baud"`

	IntervalMs     int      `toml:"interval_ms"`
	ConnectTimeout Duration `toml:"connect_timeout"`
	Cooldown       Duration `toml:"cooldown"`
	SocketCooldown Duration `toml:"socket_cooldown"`
	ProbeInterval  Duration `toml:"probe_interval"`

	Verbose bool `toml:"verbose"`
}

func DefaultProducer() Producer {
	return Producer{
		Transport:      transport.KindRFCOMM,
		Channel:        transport.DefaultChannel,
		Baud:           transport.DefaultBaud,
		IntervalMs:     DefaultIntervalMs,
		ConnectTimeout: Duration{DefaultConnectTimeout},
		Cooldown:       Duration{DefaultCooldown},
		SocketCooldown: Duration{DefaultSocketCooldown},
		ProbeInterval:  Duration{DefaultProbeInterval},
	}
}

// LoadProducer returns the defaults overlaid with the file at path, if any.
func LoadProducer(path string) (Producer, error) {
	cfg := DefaultProducer()
	if err := decodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (p Producer) Validate() error {
	if p.Addr == "" {
		return &Error{Field: "addr", Msg: "a peer address is required"}
	}
	if err := validateTransport(p.Transport, p.Channel); err != nil {
		return err
	}
	if p.IntervalMs <= 0 {
		return &Error{Field: "interval_ms", Msg: "must be positive"}
	}
	if p.ConnectTimeout.Duration <= 0 {
		return &Error{Field: "connect_timeout", Msg: "must be positive"}
	}
	if p.ProbeInterval.Duration <= 0 {
		return &Error{Field: "probe_interval", Msg: "must be positive"}
	}
	return nil
}

func (p Producer) Endpoint() transport.Endpoint {
	return transport.Endpoint{
		Kind:    p.Transport,
		Address: p.Addr,
		Channel: p.Channel,
		Baud:    p.Baud,
	}
}

func (p Producer) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

type Consumer struct {
	Transport transport.Kind `toml:"transport"`
	// Listen is the tcp listen address or the serial device path.
	Listen  string `toml:"listen"`
	Channel uint8  `toml:"channel"`
	Baud    int    `toml:"baud"`

	Echo       bool `toml:"echo"`
	Hex        bool `toml:"hex"`
	Reassemble bool `toml:"reassemble"`
	Verbose    bool `toml:"verbose"`

	UDPConfig    string `toml:"udp_config"`
	CANInterface string `toml:"can_interface"`
}

func DefaultConsumer() Consumer {
	return Consumer{
		Transport: transport.KindRFCOMM,
		Listen:    DefaultListen,
		Channel:   transport.DefaultChannel,
		Baud:      transport.DefaultBaud,
	}
}

func LoadConsumer(path string) (Consumer, error) {
	cfg := DefaultConsumer()
	if err := decodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Consumer) Validate() error {
	if err := validateTransport(c.Transport, c.Channel); err != nil {
		return err
	}
	if c.Transport != transport.KindRFCOMM && c.Listen == "" {
		return &Error{Field: "listen", Msg: "required for " + string(c.Transport)}
	}
	return nil
}

func (c Consumer) Endpoint() transport.Endpoint {
	return transport.Endpoint{
		Kind:    c.Transport,
		Address: c.Listen,
		Channel: c.Channel,
		Baud:    c.Baud,
	}
}

// ValidChannel reports whether ch is a usable RFCOMM channel.
func ValidChannel(ch int) bool {
	return ch > 0 && ch <= maxChannel
}

func validateTransport(kind transport.Kind, channel uint8) error {
	switch kind {
	case transport.KindRFCOMM:
		if !ValidChannel(int(channel)) {
			return &Error{Field: "channel", Msg: fmt.Sprintf("%d is outside 1..%d", channel, maxChannel)}
		}
	case transport.KindTCP, transport.KindSerial:
	default:
		return &Error{Field: "transport", Msg: fmt.Sprintf("unknown transport %q", kind)}
	}
	return nil
}

func decodeFile(path string, v interface{}) error {
	if path == "" {
		return nil
	}
	md, err := toml.DecodeFile(path, v)
	if err != nil {
		return errors.Wrapf(err, "unable to load configuration %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return &Error{Msg: fmt.Sprintf("unknown keys in %s: %v", path, undecoded)}
	}
	return nil
}
