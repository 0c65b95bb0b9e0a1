package transport

import (
	"context"
	"net"
	"net/netip"
	"syscall"
	"time"

	"github.com/sagernet/sing/common/control"

	"ghostfetch/internal/shared/logger"
)

const (
	dialTimeout   = 16 * time.Second
	dialKeepAlive = 30 * time.Second
)

// sourceDialer dials from a fixed local address and honours the override table.
type sourceDialer struct {
	dialer      *net.Dialer
	overrides   *OverrideTable
	controllers []control.Func
}

func newSourceDialer(local netip.Addr, overrides *OverrideTable) *sourceDialer {
	d := &sourceDialer{
		dialer: &net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialKeepAlive,
		},
	}
	if local.IsValid() {
		d.dialer.LocalAddr = &net.TCPAddr{IP: net.IP(local.AsSlice())}
		d.overrides = overrides
		d.controllers = append(d.controllers, freebindControl)
	}
	if len(d.controllers) > 0 {
		d.dialer.Control = d.control
	}
	return d
}

func (d *sourceDialer) control(network, address string, c syscall.RawConn) error {
	for _, ctl := range d.controllers {
		if err := ctl(network, address, c); err != nil {
			logger.Error().Err(err).Str("address", address).Msg("failed to apply socket controller")
		}
	}
	return nil
}

func (d *sourceDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if target, ok := d.overrides.rewrite(addr); ok {
		l := logger.WithComponent("Transport/Dialer")
		l.Debug().Str("host", addr).Str("pinned", target).Msg("Resolver override applied.")
		addr = target
	}
	return d.dialer.DialContext(ctx, network, addr)
}
