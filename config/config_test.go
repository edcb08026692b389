package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jd3nn1s/dashlink/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "dashlink.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultProducer(t *testing.T) {
	cfg, err := LoadProducer("")
	require.NoError(t, err)
	assert.Equal(t, transport.KindRFCOMM, cfg.Transport)
	assert.Equal(t, uint8(1), cfg.Channel)
	assert.Equal(t, 150*time.Millisecond, cfg.Interval())
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout.Duration)
	assert.Equal(t, 300*time.Millisecond, cfg.Cooldown.Duration)
	assert.Equal(t, 3*time.Second, cfg.ProbeInterval.Duration)

	err = cfg.Validate()
	require.Error(t, err)
	assert.IsType(t, &Error{}, err)
	assert.Equal(t, "addr", err.(*Error).Field)
}

func TestLoadProducer(t *testing.T) {
	path := writeConfig(t, `
transport = "tcp"
addr = "10.0.0.2:7001"
interval_ms = 50
cooldown = "1s"
probe_interval = "500ms"
`)
	cfg, err := LoadProducer(path)
	require.NoError(t, err)
	assert.Equal(t, transport.KindTCP, cfg.Transport)
	assert.Equal(t, "10.0.0.2:7001", cfg.Addr)
	assert.Equal(t, 50*time.Millisecond, cfg.Interval())
	assert.Equal(t, time.Second, cfg.Cooldown.Duration)
	assert.Equal(t, 500*time.Millisecond, cfg.ProbeInterval.Duration)
	// untouched keys keep their defaults
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout.Duration)
	assert.NoError(t, cfg.Validate())

	ep := cfg.Endpoint()
	assert.Equal(t, transport.KindTCP, ep.Kind)
	assert.Equal(t, "10.0.0.2:7001", ep.Address)
}

func TestLoadProducerErrors(t *testing.T) {
	_, err := LoadProducer(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadProducer(writeConfig(t, `cooldown = "soon"`))
	assert.Error(t, err)

	_, err = LoadProducer(writeConfig(t, `colour = "red"`))
	require.Error(t, err)
	assert.IsType(t, &Error{}, err)
}

func TestProducerValidate(t *testing.T) {
	cfg := DefaultProducer()
	cfg.Addr = "40:91:51:B2:84:FA"
	assert.NoError(t, cfg.Validate())

	cfg.Channel = 31
	assert.Error(t, cfg.Validate())
	cfg.Channel = 0
	assert.Error(t, cfg.Validate())

	cfg.Channel = 1
	cfg.IntervalMs = 0
	assert.Error(t, cfg.Validate())

	cfg.IntervalMs = 150
	cfg.Transport = "pigeon"
	assert.Error(t, cfg.Validate())
}

func TestConsumer(t *testing.T) {
	cfg, err := LoadConsumer(writeConfig(t, `
transport = "serial"
listen = "/dev/rfcomm0"
echo = true
hex = true
can_interface = "can0"
`))
	require.NoError(t, err)
	assert.True(t, cfg.Echo)
	assert.True(t, cfg.Hex)
	assert.False(t, cfg.Reassemble)
	assert.Equal(t, "can0", cfg.CANInterface)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, transport.Endpoint{
		Kind:    transport.KindSerial,
		Address: "/dev/rfcomm0",
		Channel: 1,
		Baud:    transport.DefaultBaud,
	}, cfg.Endpoint())

	cfg.Listen = ""
	assert.Error(t, cfg.Validate())

	def := DefaultConsumer()
	assert.NoError(t, def.Validate())
}

func TestValidChannel(t *testing.T) {
	assert.False(t, ValidChannel(0))
	assert.True(t, ValidChannel(1))
	assert.True(t, ValidChannel(30))
	assert.False(t, ValidChannel(31))
}
