//go:build !linux

package transport

import "syscall"

func freebindControl(network, address string, c syscall.RawConn) error {
	return nil
}
