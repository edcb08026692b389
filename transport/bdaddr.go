package transport

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// ParseBDAddr parses "AA:BB:CC:DD:EE:FF" into the little endian byte order the kernel
// expects in sockaddr_rc.
func ParseBDAddr(s string) ([6]byte, error) {
	var addr [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return addr, errors.Wrapf(err, "transport: invalid bluetooth address %q", s)
	}
	if len(hw) != len(addr) {
		return addr, errors.Errorf("transport: invalid bluetooth address %q", s)
	}
	for i := range hw {
		addr[len(addr)-1-i] = hw[i]
	}
	return addr, nil
}

// FormatBDAddr is the inverse of ParseBDAddr.
func FormatBDAddr(addr [6]byte) string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		addr[5], addr[4], addr[3], addr[2], addr[1], addr[0])
}
