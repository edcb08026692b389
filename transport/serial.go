package transport

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// to allow testing
var openSerial = func(path string, mode *serial.Mode) (serial.Port, error) {
	return serial.Open(path, mode)
}

type serialDialer struct {
	ep Endpoint
}

// Dial opens the device. Opening a tty does not block on a peer, so timeout is unused.
func (d *serialDialer) Dial(ctx context.Context, timeout time.Duration) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return openSerialConn(d.ep)
}

func (d *serialDialer) String() string {
	return d.ep.String()
}

// serialListener hands out the device itself as the single connection. It is reopened
// on the next Accept once the previous session has closed it.
type serialListener struct {
	ep Endpoint
}

func (l *serialListener) Accept(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return openSerialConn(l.ep)
}

func (l *serialListener) Addr() string {
	return l.ep.String()
}

func (l *serialListener) Close() error {
	return nil
}

func openSerialConn(ep Endpoint) (Conn, error) {
	port, err := openSerial(ep.Address, &serial.Mode{BaudRate: ep.Baud})
	if err != nil {
		return nil, errors.Wrapf(err, "transport: unable to open %s", ep.Address)
	}
	return &serialConn{Port: port, path: ep.Address}, nil
}

type serialConn struct {
	serial.Port
	path string
}

// SetWriteDeadline is a no-op: tty writes complete or fail, they do not time out.
func (c *serialConn) SetWriteDeadline(time.Time) error {
	return nil
}

func (c *serialConn) Peer() string {
	return c.path
}
