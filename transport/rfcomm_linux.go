//go:build linux

package transport

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

var rfcommSocket = func() (int, error) {
	return unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.BTPROTO_RFCOMM)
}

// Dial starts a non-blocking connect and waits up to timeout for the socket to become
// writable before reading back SO_ERROR.
func (d *rfcommDialer) Dial(ctx context.Context, timeout time.Duration) (Conn, error) {
	fd, err := rfcommSocket()
	if err != nil {
		return nil, &SocketError{Err: os.NewSyscallError("socket", err)}
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		log.WithField("err", err).Debug("rfcomm: unable to enable keepalive")
	}

	sa := &unix.SockaddrRFCOMM{Addr: d.addr, Channel: d.ep.Channel}
	err = unix.Connect(fd, sa)
	if err == unix.EINPROGRESS || err == unix.EINTR {
		err = waitConnected(ctx, fd, timeout)
	} else if err != nil {
		err = os.NewSyscallError("connect", err)
	}
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &fileConn{
		File: os.NewFile(uintptr(fd), "rfcomm:"+d.ep.Address),
		peer: fmt.Sprintf("%s/%d", d.ep.Address, d.ep.Channel),
	}, nil
}

func waitConnected(ctx context.Context, fd int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrConnectTimeout
		}
		if remaining > pollSlice {
			remaining = pollSlice
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, int(remaining/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("poll", err)
		}
		if n == 0 {
			continue
		}
		soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return os.NewSyscallError("getsockopt", err)
		}
		if soErr != 0 {
			return os.NewSyscallError("connect", unix.Errno(soErr))
		}
		return nil
	}
}

type rfcommListener struct {
	fd      int
	channel uint8
}

// listenRFCOMM binds BDADDR_ANY on channel with a backlog of one, matching the single
// peer the server serves at a time.
func listenRFCOMM(channel uint8) (Listener, error) {
	fd, err := rfcommSocket()
	if err != nil {
		return nil, &SocketError{Err: os.NewSyscallError("socket", err)}
	}
	if err := unix.Bind(fd, &unix.SockaddrRFCOMM{Channel: channel}); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}
	return &rfcommListener{fd: fd, channel: channel}, nil
}

func (l *rfcommListener) Accept(ctx context.Context) (Conn, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fds := []unix.PollFd{{Fd: int32(l.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(pollSlice/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, os.NewSyscallError("poll", err)
		}
		if n == 0 {
			continue
		}
		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK)
		switch err {
		case nil:
		case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED:
			continue
		default:
			return nil, os.NewSyscallError("accept", err)
		}

		peer := "unknown"
		if rc, ok := sa.(*unix.SockaddrRFCOMM); ok {
			peer = FormatBDAddr(rc.Addr)
		}
		return &fileConn{
			File: os.NewFile(uintptr(nfd), "rfcomm:"+peer),
			peer: peer,
		}, nil
	}
}

func (l *rfcommListener) Addr() string {
	return fmt.Sprintf("rfcomm://%s/%d", FormatBDAddr([6]byte{}), l.channel)
}

func (l *rfcommListener) Close() error {
	return unix.Close(l.fd)
}
