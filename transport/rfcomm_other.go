//go:build !linux

package transport

import (
	"context"
	"time"
)

func (d *rfcommDialer) Dial(ctx context.Context, timeout time.Duration) (Conn, error) {
	return nil, ErrUnsupported
}

func listenRFCOMM(channel uint8) (Listener, error) {
	return nil, ErrUnsupported
}
