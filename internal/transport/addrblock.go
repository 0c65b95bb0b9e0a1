package transport

import (
	"encoding/binary"
	"math/rand/v2"
	"net/netip"
	"strings"

	"ghostfetch/internal/shared/errs"
)

// AddressBlock 是用于源地址轮换的 IPv6 网段。
//
// 主机需要把整个网段路由到本机（例如 ip route add local 2001:db8::/48 dev lo），
// 否则绑定随机地址会失败。
type AddressBlock struct {
	prefix   netip.Prefix
	base     [16]byte
	hostMask [16]byte
}

// ParseAddressBlock 解析 CIDR 形式的 IPv6 网段。IPv4 或格式错误都是配置错误。
func ParseAddressBlock(cidr string) (AddressBlock, error) {
	p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return AddressBlock{}, errs.New(errs.Configuration, "invalid address block ", cidr).Base(err)
	}
	if !p.Addr().Is6() || p.Addr().Is4In6() {
		return AddressBlock{}, errs.New(errs.Configuration, "address block must be IPv6: ", cidr)
	}
	return newAddressBlock(p), nil
}

func newAddressBlock(p netip.Prefix) AddressBlock {
	p = p.Masked()
	b := AddressBlock{prefix: p, base: p.Addr().As16()}
	bits := p.Bits()
	for i := 0; i < 128; i++ {
		if i >= bits {
			b.hostMask[i/8] |= 0x80 >> (i % 8)
		}
	}
	return b
}

// Random draws an address uniformly from the block: (rand128 & hostMask) | base.
func (b AddressBlock) Random() netip.Addr {
	var r [16]byte
	binary.BigEndian.PutUint64(r[:8], rand.Uint64())
	binary.BigEndian.PutUint64(r[8:], rand.Uint64())
	for i := range r {
		r[i] = r[i]&b.hostMask[i] | b.base[i]
	}
	return netip.AddrFrom16(r)
}

func (b AddressBlock) Contains(addr netip.Addr) bool {
	return b.prefix.Contains(addr)
}

func (b AddressBlock) Bits() int {
	return b.prefix.Bits()
}

func (b AddressBlock) IsValid() bool {
	return b.prefix.IsValid()
}

func (b AddressBlock) String() string {
	return b.prefix.String()
}
