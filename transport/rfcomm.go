package transport

import "os"

type rfcommDialer struct {
	addr [6]byte
	ep   Endpoint
}

func (d *rfcommDialer) String() string {
	return d.ep.String()
}

// fileConn is a connected socket handed to the runtime poller, so deadlines and Close
// work on it like on any net.Conn.
type fileConn struct {
	*os.File
	peer string
}

func (c *fileConn) Peer() string {
	return c.peer
}
