package transport

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
)

type tcpDialer struct {
	ep Endpoint
}

func (d *tcpDialer) Dial(ctx context.Context, timeout time.Duration) (Conn, error) {
	nd := net.Dialer{
		Timeout:   timeout,
		KeepAlive: keepAlivePeriod,
	}
	c, err := nd.DialContext(ctx, "tcp", d.ep.Address)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, errors.Wrap(ErrConnectTimeout, err.Error())
		}
		return nil, err
	}
	return WrapNetConn(c), nil
}

func (d *tcpDialer) String() string {
	return d.ep.String()
}

type tcpListener struct {
	ln *net.TCPListener
}

func listenTCP(addr string) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: unable to listen on %s", addr)
	}
	return &tcpListener{ln: ln.(*net.TCPListener)}, nil
}

func (l *tcpListener) Accept(ctx context.Context) (Conn, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := l.ln.SetDeadline(time.Now().Add(pollSlice)); err != nil {
			return nil, err
		}
		c, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return nil, err
		}
		return WrapNetConn(c), nil
	}
}

func (l *tcpListener) Addr() string {
	return l.ln.Addr().String()
}

func (l *tcpListener) Close() error {
	return l.ln.Close()
}
