package dashlink

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jd3nn1s/dashlink/frame"
	"github.com/jd3nn1s/dashlink/transport"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const readBufferSize = 1024

// to allow testing
var acceptRetryDelay = time.Second

type ServerConfig struct {
	Listener transport.Listener
	// Echo writes every received chunk back to the peer.
	Echo bool
	// HexDump logs every received chunk as hex.
	HexDump bool
	// Reassemble buffers the stream and extracts frames across read boundaries
	// instead of decoding each read on its own.
	Reassemble bool
	Presenter  Presenter
}

// Session is one accepted peer. Its counters start at zero for every connection.
type Session struct {
	Peer     string
	Started  time.Time
	Messages uint64
	Bytes    uint64
	Frames   uint64
	Errors   uint64
	Probes   uint64

	conn        transport.Conn
	reassembler frame.Reassembler
}

// Server accepts one peer at a time and decodes the telemetry it sends.
type Server struct {
	cfg       ServerConfig
	presenter Presenter
	state     ConnectionState
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		cfg:       cfg,
		presenter: cfg.Presenter,
		state:     StateDisconnected,
	}
	if s.presenter == nil {
		s.presenter = NopPresenter{}
	}
	return s
}

// State is the last state reported to the presenter.
func (s *Server) State() ConnectionState {
	return s.state
}

func (s *Server) setState(c StateChange) {
	s.state = c.State
	s.presenter.OnConnectionState(c)
}

// AcceptNext blocks until a peer connects or ctx is done.
func (s *Server) AcceptNext(ctx context.Context) (*Session, error) {
	// Serve already reported Listening when the previous session ended
	if s.state != StateListening {
		s.setState(StateChange{State: StateListening, Peer: s.cfg.Listener.Addr()})
	}
	conn, err := s.cfg.Listener.Accept(ctx)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		Peer:    conn.Peer(),
		Started: time.Now(),
		conn:    conn,
	}
	log.WithField("peer", sess.Peer).Info("client connected")
	s.setState(StateChange{State: StateServing, Peer: sess.Peer})
	return sess, nil
}

// Serve reads from the session until the peer disconnects, the transport fails or ctx
// is done. The connection is closed on return.
func (s *Server) Serve(ctx context.Context, sess *Session) error {
	stop := make(chan struct{})
	defer close(stop)
	// unblocks the read below
	go func() {
		select {
		case <-ctx.Done():
			_ = sess.conn.Close()
		case <-stop:
		}
	}()
	defer func() {
		if err := sess.conn.Close(); err != nil {
			log.WithField("err", err).Debug("closing session connection")
		}
		log.WithFields(log.Fields{
			"peer":     sess.Peer,
			"duration": time.Since(sess.Started).Round(time.Millisecond),
			"messages": sess.Messages,
			"bytes":    sess.Bytes,
			"frames":   sess.Frames,
			"errors":   sess.Errors,
		}).Info("session ended")
		s.setState(StateChange{State: StateListening, Peer: s.cfg.Listener.Addr()})
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := sess.conn.Read(buf)
		if n > 0 {
			if err := s.handle(sess, buf[:n]); err != nil {
				return err
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				log.WithField("peer", sess.Peer).Info("client disconnected")
				return nil
			}
			if isTransient(err) {
				continue
			}
			return &TransportError{Op: "read", Err: err}
		}
		if n == 0 {
			log.WithField("peer", sess.Peer).Info("client disconnected")
			return nil
		}
	}
}

// Run serves peers one after another until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	log.WithField("addr", s.cfg.Listener.Addr()).Info("waiting for connections")
	for {
		sess, err := s.AcceptNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithField("err", err).Error("accept failed")
			if err := sleep(ctx, acceptRetryDelay); err != nil {
				return err
			}
			continue
		}
		if err := s.Serve(ctx, sess); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithFields(log.Fields{
				"peer": sess.Peer,
				"err":  err,
			}).Error("session failed")
		}
		log.Info("waiting for next connection")
	}
}

func (s *Server) handle(sess *Session, p []byte) error {
	sess.Messages++
	sess.Bytes += uint64(len(p))

	entry := log.WithFields(log.Fields{
		"peer":  sess.Peer,
		"bytes": len(p),
	})
	entry.Debug("RX")
	if s.cfg.HexDump {
		entry.Info("[HEX] " + frame.Dump(p))
	}

	if s.cfg.Reassemble {
		s.reassemble(sess, p)
	} else {
		s.decode(sess, p)
	}

	if s.cfg.Echo {
		if _, err := sess.conn.Write(p); err != nil {
			return &TransportError{Op: "echo", Err: err}
		}
		entry.Debug("echoed")
	}
	return nil
}

func (s *Server) decode(sess *Session, p []byte) {
	if frame.IsSentinel(p) {
		sess.Probes++
		log.WithField("peer", sess.Peer).Debug("liveness probe")
		return
	}
	rec, err := frame.Decode(p)
	if err != nil {
		sess.Errors++
		entry := log.WithFields(log.Fields{
			"peer": sess.Peer,
			"err":  err,
		})
		if !s.cfg.HexDump {
			entry = entry.WithField("hex", frame.Dump(p))
		}
		entry.Warn("unable to parse telemetry")
		if text, ok := printable(p); ok {
			log.WithField("peer", sess.Peer).Info("[TEXT] " + text)
		}
		return
	}
	sess.Frames++
	s.presenter.OnTelemetry(rec)
}

func (s *Server) reassemble(sess *Session, p []byte) {
	records, skipped := sess.reassembler.Feed(p)
	if skipped > 0 {
		log.WithFields(log.Fields{
			"peer":    sess.Peer,
			"skipped": skipped,
		}).Debug("skipped bytes outside frames")
	}
	for _, rec := range records {
		sess.Frames++
		s.presenter.OnTelemetry(rec)
	}
}

// printable returns p as text when it looks like something a human typed.
func printable(p []byte) (string, bool) {
	if !utf8.Valid(p) {
		return "", false
	}
	text := strings.TrimRight(string(p), "\r\n")
	if text == "" {
		return "", false
	}
	for _, r := range text {
		if !unicode.IsPrint(r) && r != '\t' && r != '\n' && r != '\r' {
			return "", false
		}
	}
	return text, true
}
