package transport

import (
	"net"
	"net/netip"
	"strings"

	"golang.org/x/net/idna"

	"ghostfetch/internal/shared/errs"
)

// EdgeFrontDoor is the pinned edge/CDN address used by PinEdge.
var EdgeFrontDoor = netip.AddrPortFrom(netip.MustParseAddr("2606:4700:4700::1111"), 443)

// OverrideTable maps host names to fixed socket addresses, bypassing DNS.
// It is read-only once built and shared by every client cloned from the same config.
type OverrideTable struct {
	entries map[string]netip.AddrPort
}

// OverrideBuilder collects pins; call Build to obtain the immutable table.
type OverrideBuilder struct {
	entries map[string]netip.AddrPort
	err     error
}

func Overrides() *OverrideBuilder {
	return &OverrideBuilder{entries: make(map[string]netip.AddrPort)}
}

func (b *OverrideBuilder) Pin(host string, target netip.AddrPort) *OverrideBuilder {
	if b.err != nil {
		return b
	}
	name, err := normalizeHost(host)
	if err != nil {
		b.err = errs.New(errs.Configuration, "invalid override host ", host).Base(err)
		return b
	}
	if !target.IsValid() {
		b.err = errs.New(errs.Configuration, "invalid override target for ", host)
		return b
	}
	b.entries[name] = target
	return b
}

// PinEdge pins every host to EdgeFrontDoor.
func (b *OverrideBuilder) PinEdge(hosts ...string) *OverrideBuilder {
	for _, h := range hosts {
		b.Pin(h, EdgeFrontDoor)
	}
	return b
}

func (b *OverrideBuilder) Build() (*OverrideTable, error) {
	if b.err != nil {
		return nil, b.err
	}
	entries := make(map[string]netip.AddrPort, len(b.entries))
	for k, v := range b.entries {
		entries[k] = v
	}
	return &OverrideTable{entries: entries}, nil
}

// Lookup returns the pinned address for host. A nil table pins nothing.
func (t *OverrideTable) Lookup(host string) (netip.AddrPort, bool) {
	if t == nil || len(t.entries) == 0 {
		return netip.AddrPort{}, false
	}
	name, err := normalizeHost(host)
	if err != nil {
		return netip.AddrPort{}, false
	}
	ap, ok := t.entries[name]
	return ap, ok
}

func (t *OverrideTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// rewrite maps a dial address "host:port" onto its pinned target, if any.
func (t *OverrideTable) rewrite(addr string) (string, bool) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ap, ok := t.Lookup(host)
	if !ok {
		return addr, false
	}
	return ap.String(), true
}

func normalizeHost(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return "", errs.New(errs.Configuration, "empty host")
	}
	return idna.Lookup.ToASCII(host)
}
