package dashlink

import (
	"context"
	"time"

	"github.com/jd3nn1s/dashlink/frame"
	"github.com/jd3nn1s/dashlink/telemetry"
	"github.com/jd3nn1s/dashlink/transport"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// to allow testing
var (
	wouldBlockPause = 2 * time.Millisecond
	writeTimeout    = time.Second
)

type ProducerConfig struct {
	Dialer         transport.Dialer
	Interval       time.Duration
	ConnectTimeout time.Duration
	// Cooldown is the pause after a failed connect, SocketCooldown the pause after
	// failing to create the socket itself.
	Cooldown       time.Duration
	SocketCooldown time.Duration
	ProbeInterval  time.Duration
	// Verbose logs a hex dump of every transmitted frame.
	Verbose   bool
	Presenter Presenter
}

// Producer streams simulated telemetry to a single peer, reconnecting whenever the
// link breaks.
type Producer struct {
	cfg       ProducerConfig
	presenter Presenter
	sim       telemetry.SimState

	sent       uint64
	reconnects uint64
}

func NewProducer(cfg ProducerConfig) *Producer {
	p := &Producer{
		cfg:       cfg,
		presenter: cfg.Presenter,
		sim:       telemetry.NewSimState(),
	}
	if p.presenter == nil {
		p.presenter = NopPresenter{}
	}
	return p
}

// ConnectWithTimeout makes one connection attempt bounded by the configured connect
// timeout.
func (p *Producer) ConnectWithTimeout(ctx context.Context) (transport.Conn, error) {
	endpoint := p.cfg.Dialer.String()
	p.presenter.OnConnectionState(StateChange{
		State:    StateConnecting,
		Peer:     endpoint,
		Deadline: time.Now().Add(p.cfg.ConnectTimeout),
	})
	conn, err := p.cfg.Dialer.Dial(ctx, p.cfg.ConnectTimeout)
	if err != nil {
		p.presenter.OnConnectionState(StateChange{State: StateDisconnected, Peer: endpoint})
		return nil, &ConnectError{Endpoint: endpoint, Err: err}
	}
	p.presenter.OnConnectionState(StateChange{State: StateConnected, Peer: conn.Peer()})
	return conn, nil
}

// Reconnect retries ConnectWithTimeout until it succeeds, pausing between attempts.
// It only gives up when ctx is done.
func (p *Producer) Reconnect(ctx context.Context) (transport.Conn, error) {
	for attempt := 1; ; attempt++ {
		conn, err := p.ConnectWithTimeout(ctx)
		if err == nil {
			log.WithFields(log.Fields{
				"peer":     conn.Peer(),
				"attempts": attempt,
			}).Info("connected")
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		cooldown := p.cfg.Cooldown
		var sockErr *transport.SocketError
		if errors.As(err, &sockErr) {
			cooldown = p.cfg.SocketCooldown
			log.WithField("err", err).Error("unable to create socket")
		} else {
			log.WithFields(log.Fields{
				"err":     err,
				"attempt": attempt,
			}).Warn("connect failed, retrying")
		}
		if err := sleep(ctx, cooldown); err != nil {
			return nil, err
		}
	}
}

// SendFrame writes b in a single call. A write that times out before sending
// anything returns ErrWouldBlock, a write that sends only part of b is a
// TransportError wrapping ErrPartialWrite.
func (p *Producer) SendFrame(conn transport.Conn, b []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		log.WithField("err", err).Debug("unable to set write deadline")
	}
	n, err := conn.Write(b)
	if err != nil {
		if n == 0 && isWouldBlock(err) {
			return ErrWouldBlock
		}
		if n > 0 && n < len(b) {
			return &TransportError{Op: "write", Err: errors.Wrapf(ErrPartialWrite, "%d of %d bytes: %v", n, len(b), err)}
		}
		return &TransportError{Op: "write", Err: err}
	}
	if n < len(b) {
		return &TransportError{Op: "write", Err: errors.Wrapf(ErrPartialWrite, "%d of %d bytes", n, len(b))}
	}
	return nil
}

// Probe writes a single sentinel byte. It catches a peer that went away without the
// transport noticing, since no reads ever happen on this side.
func (p *Producer) Probe(conn transport.Conn) error {
	err := p.SendFrame(conn, []byte{frame.Sentinel})
	if err == ErrWouldBlock {
		return nil
	}
	return err
}

// Run connects and then sends one frame per interval until ctx is done, replacing the
// connection whenever a write or probe fails.
func (p *Producer) Run(ctx context.Context) error {
	log.WithField("endpoint", p.cfg.Dialer.String()).Info("connecting")
	conn, err := p.Reconnect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if conn != nil {
			p.close(conn)
		}
		log.WithFields(log.Fields{
			"frames":     p.sent,
			"reconnects": p.reconnects,
		}).Info("producer stopped")
	}()

	// zero, so the first probe follows the first frame and a dead link is caught early
	var lastProbe time.Time
	for ctx.Err() == nil {
		p.sim = telemetry.Tick(p.sim)
		rec := p.sim.Record()
		b := frame.Encode(rec)

		err := p.SendFrame(conn, b[:])
		if err == ErrWouldBlock {
			log.Debug("write would block, skipping frame")
			if err := sleep(ctx, wouldBlockPause); err != nil {
				break
			}
			continue
		}
		if err != nil {
			log.WithField("err", err).Error("send failed, reconnecting")
			if conn, err = p.replace(ctx, conn); err != nil {
				return err
			}
			continue
		}
		p.sent++
		if p.cfg.Verbose {
			log.WithField("frame", frame.Dump(b[:])).Info("TX")
		}
		p.presenter.OnTelemetry(rec)

		if time.Since(lastProbe) >= p.cfg.ProbeInterval {
			lastProbe = time.Now()
			if err := p.Probe(conn); err != nil {
				log.WithField("err", err).Error("probe failed, peer is gone, reconnecting")
				if conn, err = p.replace(ctx, conn); err != nil {
					return err
				}
				continue
			}
		}

		if err := sleep(ctx, p.cfg.Interval); err != nil {
			break
		}
	}
	return ctx.Err()
}

// Sent is the number of frames written in full.
func (p *Producer) Sent() uint64 {
	return p.sent
}

func (p *Producer) replace(ctx context.Context, conn transport.Conn) (transport.Conn, error) {
	p.close(conn)
	p.reconnects++
	return p.Reconnect(ctx)
}

func (p *Producer) close(conn transport.Conn) {
	p.presenter.OnConnectionState(StateChange{State: StateClosing, Peer: conn.Peer()})
	if err := conn.Close(); err != nil {
		log.WithField("err", err).Warn("unable to close connection")
	}
	p.presenter.OnConnectionState(StateChange{State: StateDisconnected})
}
