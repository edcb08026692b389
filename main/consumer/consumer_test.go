package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jd3nn1s/dashlink/config"
	"github.com/jd3nn1s/dashlink/console"
	"github.com/jd3nn1s/dashlink/transport"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelp(t *testing.T) {
	out := &bytes.Buffer{}
	assert.Equal(t, 0, run([]string{"--help"}, out))
	assert.Contains(t, out.String(), "--echo")
	assert.Contains(t, out.String(), "--reassemble")
	assert.Contains(t, out.String(), "[channel]")
}

func TestRunUsageErrors(t *testing.T) {
	out := &bytes.Buffer{}
	assert.Equal(t, 1, run([]string{"--bogus"}, out))
	assert.Equal(t, 1, run([]string{"1", "2"}, out))
	assert.Equal(t, 1, run([]string{"--transport", "carrier-pigeon"}, out))
	assert.Equal(t, 1, run([]string{"--transport", "serial", "--listen", ""}, out))
}

func TestConsumerConfigFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"-e", "-x", "--reassemble", "--can", "can0"}))

	cfg, err := consumerConfig(cmd.Flags(), []string{"5"}, "")
	require.NoError(t, err)
	assert.True(t, cfg.Echo)
	assert.True(t, cfg.Hex)
	assert.True(t, cfg.Reassemble)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "can0", cfg.CANInterface)
	assert.Equal(t, uint8(5), cfg.Channel)
	assert.Equal(t, transport.KindRFCOMM, cfg.Transport)
}

func TestConsumerConfigInvalidChannel(t *testing.T) {
	for _, arg := range []string{"0", "31", "abc"} {
		cfg, err := consumerConfig(newRootCmd().Flags(), []string{arg}, "")
		require.NoError(t, err, arg)
		assert.Equal(t, uint8(transport.DefaultChannel), cfg.Channel, arg)
	}
}

func TestConsumerConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consumer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
transport = "tcp"
listen = "127.0.0.1:7100"
echo = true
udp_config = "udpforwarder.toml"
`), 0o600))

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--listen", "127.0.0.1:7200"}))
	cfg, err := consumerConfig(cmd.Flags(), nil, path)
	require.NoError(t, err)
	assert.Equal(t, transport.KindTCP, cfg.Transport)
	assert.Equal(t, "127.0.0.1:7200", cfg.Listen)
	assert.True(t, cfg.Echo)
	assert.Equal(t, "udpforwarder.toml", cfg.UDPConfig)
	assert.Equal(t, config.DefaultConsumer().Baud, cfg.Baud)
}

func TestRouteLogs(t *testing.T) {
	logger := log.New()
	stderr := &bytes.Buffer{}
	logger.SetOutput(stderr)
	logger.SetLevel(log.InfoLevel)

	out := &bytes.Buffer{}
	routeLogs(logger, console.New(out))
	logger.WithField("peer", "AA:BB").Warn("unable to parse telemetry")
	logger.Info("client connected")
	logger.Debug("RX")

	assert.Empty(t, stderr.String())
	assert.Equal(t, 1, strings.Count(out.String(), "unable to parse telemetry"))
	assert.Contains(t, out.String(), "[WARNING] unable to parse telemetry peer=AA:BB")
	assert.Contains(t, out.String(), "[INFO] client connected")
	assert.NotContains(t, out.String(), "RX")
}
