// Package transport provides the byte stream endpoints the producer dials and the
// consumer listens on: Bluetooth RFCOMM sockets, TCP, and serial devices such as a
// bound /dev/rfcommN.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindRFCOMM Kind = "rfcomm"
	KindTCP    Kind = "tcp"
	KindSerial Kind = "serial"
)

const (
	DefaultChannel = 1
	DefaultBaud    = 115200

	// pollSlice bounds every blocking wait so that cancellation is noticed promptly.
	pollSlice       = 100 * time.Millisecond
	keepAlivePeriod = 15 * time.Second
)

var (
	ErrConnectTimeout = errors.New("transport: connect timed out")
	ErrUnsupported    = errors.New("transport: not supported on this platform")
)

// SocketError means no endpoint could be created, so no connection was attempted.
type SocketError struct {
	Err error
}

func (e *SocketError) Error() string {
	return "transport: socket: " + e.Err.Error()
}

func (e *SocketError) Unwrap() error {
	return e.Err
}

// Endpoint describes the far side for a dialer, or the local side for a listener.
// Address is a Bluetooth MAC for rfcomm, host:port for tcp and a device path for serial.
type Endpoint struct {
	Kind    Kind
	Address string
	Channel uint8
	Baud    int
}

func (ep Endpoint) String() string {
	switch ep.Kind {
	case KindRFCOMM:
		return fmt.Sprintf("rfcomm://%s/%d", ep.Address, ep.Channel)
	case KindSerial:
		return fmt.Sprintf("serial://%s@%d", ep.Address, ep.Baud)
	}
	return fmt.Sprintf("%s://%s", ep.Kind, ep.Address)
}

// Conn is one established byte stream.
type Conn interface {
	io.ReadWriteCloser
	SetWriteDeadline(t time.Time) error
	Peer() string
}

type Dialer interface {
	// Dial makes one connection attempt, waiting at most timeout for it to complete.
	Dial(ctx context.Context, timeout time.Duration) (Conn, error)
	String() string
}

type Listener interface {
	// Accept blocks until a peer connects or ctx is done.
	Accept(ctx context.Context) (Conn, error)
	Addr() string
	Close() error
}

func NewDialer(ep Endpoint) (Dialer, error) {
	switch ep.Kind {
	case KindRFCOMM:
		addr, err := ParseBDAddr(ep.Address)
		if err != nil {
			return nil, err
		}
		return &rfcommDialer{addr: addr, ep: ep}, nil
	case KindTCP:
		if ep.Address == "" {
			return nil, errors.New("transport: tcp address is required")
		}
		return &tcpDialer{ep: ep}, nil
	case KindSerial:
		if ep.Address == "" {
			return nil, errors.New("transport: serial device is required")
		}
		return &serialDialer{ep: withBaud(ep)}, nil
	}
	return nil, errors.Errorf("transport: unknown kind %q", ep.Kind)
}

func NewListener(ep Endpoint) (Listener, error) {
	switch ep.Kind {
	case KindRFCOMM:
		return listenRFCOMM(ep.Channel)
	case KindTCP:
		return listenTCP(ep.Address)
	case KindSerial:
		if ep.Address == "" {
			return nil, errors.New("transport: serial device is required")
		}
		return &serialListener{ep: withBaud(ep)}, nil
	}
	return nil, errors.Errorf("transport: unknown kind %q", ep.Kind)
}

// WrapNetConn adapts a net.Conn, such as one end of net.Pipe, to Conn.
func WrapNetConn(c net.Conn) Conn {
	return &netConn{Conn: c}
}

type netConn struct {
	net.Conn
}

func (c *netConn) Peer() string {
	if addr := c.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

func withBaud(ep Endpoint) Endpoint {
	if ep.Baud <= 0 {
		ep.Baud = DefaultBaud
	}
	return ep
}
