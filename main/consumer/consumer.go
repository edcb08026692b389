package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/jd3nn1s/dashlink"
	"github.com/jd3nn1s/dashlink/config"
	"github.com/jd3nn1s/dashlink/console"
	"github.com/jd3nn1s/dashlink/forwarder"
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
		Use:   "dashlink-consumer [channel]",
		Short: "Receive and display dashboard telemetry",
		Long: "Accept one producer at a time, decode its telemetry frames and show them. " +
			"Decoded records can be forwarded over UDP or onto a CAN bus.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := consumerConfig(cmd.Flags(), args, configPath)
			if err != nil {
				return err
			}
			return runConsumer(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "TOML configuration file")
	flags.String("transport", string(transport.KindRFCOMM), "rfcomm, tcp or serial")
	flags.String("listen", config.DefaultListen, "tcp listen address or serial device")
	flags.Int("baud", transport.DefaultBaud, "serial baud rate")
	flags.BoolP("echo", "e", false, "echo received data back to the peer")
	flags.BoolP("hex", "x", false, "hex dump every read")
	flags.Bool("reassemble", false, "extract frames across read boundaries")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.String("udp-config", "", "forward telemetry over UDP, configured by this TOML file")
	flags.String("can", "", "forward telemetry onto this CAN interface")
	return cmd
}

// consumerConfig loads the config file, if any, and applies the flags that were set
// and the optional channel argument on top of it.
func consumerConfig(flags *pflag.FlagSet, args []string, path string) (config.Consumer, error) {
	cfg, err := config.LoadConsumer(path)
	if err != nil {
		return cfg, err
	}

	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "transport":
			var kind string
			kind, err = flags.GetString(f.Name)
			cfg.Transport = transport.Kind(kind)
		case "listen":
			cfg.Listen, err = flags.GetString(f.Name)
		case "baud":
			cfg.Baud, err = flags.GetInt(f.Name)
		case "echo":
			cfg.Echo, err = flags.GetBool(f.Name)
		case "hex":
			cfg.Hex, err = flags.GetBool(f.Name)
		case "reassemble":
			cfg.Reassemble, err = flags.GetBool(f.Name)
		case "verbose":
			cfg.Verbose, err = flags.GetBool(f.Name)
		case "udp-config":
			cfg.UDPConfig, err = flags.GetString(f.Name)
		case "can":
			cfg.CANInterface, err = flags.GetString(f.Name)
		}
	})
	if err != nil {
		return cfg, err
	}

	if len(args) > 0 {
		ch, convErr := strconv.Atoi(args[0])
		if convErr == nil && config.ValidChannel(ch) {
			cfg.Channel = uint8(ch)
		} else {
			log.WithField("channel", args[0]).Warnf("ignoring invalid channel, using %d", cfg.Channel)
		}
	}
	return cfg, cfg.Validate()
}

func runConsumer(ctx context.Context, out io.Writer, cfg config.Consumer) error {
	logging.Configure(cfg.Verbose)

	listener, err := transport.NewListener(cfg.Endpoint())
	if err != nil {
		return errors.Wrap(err, "unable to listen")
	}
	defer listener.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	view := console.New(out)
	routeLogs(log.StandardLogger(), view)
	dash := dashlink.NewDashboard(view)

	wg := sync.WaitGroup{}

	forwarding := "OFF"
	if cfg.UDPConfig != "" {
		fwd, err := forwarder.NewUDPForwarder(cfg.UDPConfig)
		if err != nil {
			return errors.Wrap(err, "unable to load UDP forwarder")
		}
		defer fwd.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = fwd.Start(ctx)
		}()
		dash.AddForwarder(fwd)
		forwarding = fmt.Sprintf("udp %s:%d", fwd.Config.Server, fwd.Config.Port)
	}
	if cfg.CANInterface != "" {
		canFwd := dashlink.NewCANForwarder(cfg.CANInterface)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = canFwd.Start(ctx)
		}()
		dash.AddForwarder(canFwd)
		if forwarding == "OFF" {
			forwarding = "can " + cfg.CANInterface
		} else {
			forwarding += ", can " + cfg.CANInterface
		}
	}

	console.Banner(out, "Telemetry Consumer", [][2]string{
		{"Listening", listener.Addr()},
		{"Echo mode", onOff(cfg.Echo)},
		{"Hex output", onOff(cfg.Hex)},
		{"Reassemble", onOff(cfg.Reassemble)},
		{"Forwarding", forwarding},
	})

	server := dashlink.NewServer(dashlink.ServerConfig{
		Listener:   listener,
		Echo:       cfg.Echo,
		HexDump:    cfg.Hex,
		Reassemble: cfg.Reassemble,
		Presenter:  dash,
	})
	err = server.Run(ctx)
	stop()
	wg.Wait()

	rows := [][2]string{{"Last record", "none"}}
	if latest, ok := dash.Latest(); ok {
		rows = [][2]string{{"Last speed", fmt.Sprint(latest.Speed)}, {"Odometer", fmt.Sprintf("%d miles", latest.TotalDistance)}}
	}
	console.Banner(out, "Consumer stopped", rows)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// routeLogs makes the console the only sink for logger, so each entry is shown once.
func routeLogs(logger *log.Logger, view dashlink.Presenter) {
	logger.AddHook(dashlink.NewLogHook(view, logger.GetLevel()))
	logger.SetOutput(io.Discard)
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
		log.WithField("err", err).Error("consumer failed")
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}
