package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jd3nn1s/dashlink"
	"github.com/jd3nn1s/dashlink/config"
	"github.com/jd3nn1s/dashlink/console"
	"github.com/jd3nn1s/dashlink/logging"
	"github.com/jd3nn1s/dashlink/transport"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "dashlink-producer --addr <peer>",
		Short: "Stream simulated dashboard telemetry to a consumer",
		Long: "Generate telemetry frames at a fixed interval and send them to a single peer, " +
			"reconnecting whenever the link drops.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := producerConfig(cmd.Flags(), configPath)
			if err != nil {
				return err
			}
			return runProducer(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "TOML configuration file")
	flags.String("addr", "", "peer address: bluetooth MAC, host:port or serial device")
	flags.String("transport", string(transport.KindRFCOMM), "rfcomm, tcp or serial")
	flags.Uint8("channel", transport.DefaultChannel, "RFCOMM channel (1-30)")
	flags.Int("baud", transport.DefaultBaud, "serial baud rate")
	flags.Int("interval-ms", config.DefaultIntervalMs, "milliseconds between frames")
	flags.Duration("connect-timeout", config.DefaultConnectTimeout, "time allowed for each connect attempt")
	flags.BoolP("verbose", "v", false, "log every transmitted frame")
	return cmd
}

// producerConfig loads the config file, if any, and applies the flags that were set
// on top of it.
func producerConfig(flags *pflag.FlagSet, path string) (config.Producer, error) {
	cfg, err := config.LoadProducer(path)
	if err != nil {
		return cfg, err
	}

	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "addr":
			cfg.Addr, err = flags.GetString(f.Name)
		case "transport":
			var kind string
			kind, err = flags.GetString(f.Name)
			cfg.Transport = transport.Kind(kind)
		case "channel":
			cfg.Channel, err = flags.GetUint8(f.Name)
		case "baud":
			cfg.Baud, err = flags.GetInt(f.Name)
		case "interval-ms":
			cfg.IntervalMs, err = flags.GetInt(f.Name)
		case "connect-timeout":
			cfg.ConnectTimeout.Duration, err = flags.GetDuration(f.Name)
		case "verbose":
			cfg.Verbose, err = flags.GetBool(f.Name)
		}
	})
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func runProducer(ctx context.Context, out io.Writer, cfg config.Producer) error {
	logging.Configure(cfg.Verbose)

	dialer, err := transport.NewDialer(cfg.Endpoint())
	if err != nil {
		return errors.Wrap(err, "invalid peer address")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	view := console.New(out)
	view.ShowTelemetry = false
	console.Banner(out, "Telemetry Producer", [][2]string{
		{"Peer", dialer.String()},
		{"Interval", cfg.Interval().String()},
		{"Probe", cfg.ProbeInterval.String()},
		{"Verbose", onOff(cfg.Verbose)},
	})

	p := dashlink.NewProducer(dashlink.ProducerConfig{
		Dialer:         dialer,
		Interval:       cfg.Interval(),
		ConnectTimeout: cfg.ConnectTimeout.Duration,
		Cooldown:       cfg.Cooldown.Duration,
		SocketCooldown: cfg.SocketCooldown.Duration,
		ProbeInterval:  cfg.ProbeInterval.Duration,
		Verbose:        cfg.Verbose,
		Presenter:      view,
	})
	err = p.Run(ctx)

	console.Banner(out, "Producer stopped", [][2]string{
		{"Frames", fmt.Sprint(p.Sent())},
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func run(args []string, out io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.WithField("err", err).Error("producer failed")
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}
