//go:build linux

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// freebindControl lets the socket bind an address that is routed to the host
// but not assigned to any interface, which is how a whole block is made usable.
func freebindControl(network, address string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		switch network {
		case "tcp6", "udp6":
			serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_FREEBIND, 1)
		case "tcp4", "udp4":
			serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_FREEBIND, 1)
		}
	})
	if err != nil {
		return err
	}
	return serr
}
