package dashlink

import (
	"fmt"
	"os"
	"syscall"

	"github.com/pkg/errors"
)

var (
	ErrPartialWrite = errors.New("partial write")
	// ErrWouldBlock means the write deadline passed before anything was written. The
	// connection is still usable.
	ErrWouldBlock = errors.New("write would block")
)

// ConnectError is a failed connection attempt. Reconnect retries all of them.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
func (e *ConnectError) Cause() error  { return e.Err }

// TransportError is a failure on an established connection. The producer reconnects,
// the server ends the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Cause() error  { return e.Err }

func isWouldBlock(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, syscall.EAGAIN)
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}
