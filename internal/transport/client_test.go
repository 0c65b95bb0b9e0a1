package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostfetch/internal/shared/errs"
)

func mustBlock(t *testing.T, cidr string) *AddressBlock {
	t.Helper()
	b, err := ParseAddressBlock(cidr)
	require.NoError(t, err)
	return &b
}

func TestBuild_DegradedModeSendsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s|%s", r.Header.Get("User-Agent"), r.Header.Get("Referer"))
	}))
	defer srv.Close()

	headers := http.Header{}
	headers.Set("Referer", "https://example.test/")
	c, err := Build(nil, nil, headers)
	require.NoError(t, err)
	assert.False(t, c.LocalAddr().IsValid())
	assert.False(t, c.Rotating())

	body, err := c.GetBytes(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, UserAgent+"|https://example.test/", string(body))
}

func TestBuild_DefaultHeadersOverrideUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	c, err := Build(nil, nil, http.Header{"User-Agent": []string{"custom/1.0"}})
	require.NoError(t, err)

	body, err := c.GetBytes(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "custom/1.0", string(body))
}

func TestGetBytes_NonSuccessIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := Build(nil, nil, nil)
	require.NoError(t, err)

	_, err = c.GetBytes(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.Upstream))

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestClone_DrawsFreshAddresses(t *testing.T) {
	block := mustBlock(t, "2001:db8:1234::/48")
	table, err := Overrides().PinEdge("nhentai.net").Build()
	require.NoError(t, err)

	c, err := Build(block, table, nil)
	require.NoError(t, err)
	require.True(t, block.Contains(c.LocalAddr()))

	const n = 16
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = map[netip.Addr]struct{}{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cl, err := c.Clone()
			if !assert.NoError(t, err) {
				return
			}
			assert.True(t, block.Contains(cl.LocalAddr()))
			assert.Same(t, table, cl.overrides)
			mu.Lock()
			seen[cl.LocalAddr()] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Greater(t, len(seen), 1)
}

func TestRefresh_ReplacesInnerClient(t *testing.T) {
	c, err := Build(mustBlock(t, "2001:db8::/64"), nil, nil)
	require.NoError(t, err)

	before, beforeInner := c.LocalAddr(), c.current()
	require.NoError(t, c.Refresh())
	assert.NotSame(t, beforeInner, c.current())
	assert.NotEqual(t, before, c.LocalAddr())
}

func TestBuild_RejectsZeroBlock(t *testing.T) {
	_, err := Build(&AddressBlock{}, nil, nil)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.Configuration))
}

func TestSourceDialer_OverridesOnlyWhenRotating(t *testing.T) {
	table, err := Overrides().PinEdge("nhentai.net").Build()
	require.NoError(t, err)

	degraded := newSourceDialer(netip.Addr{}, table)
	assert.Nil(t, degraded.overrides)
	assert.Nil(t, degraded.dialer.LocalAddr)

	rotating := newSourceDialer(netip.MustParseAddr("2001:db8::1"), table)
	assert.Same(t, table, rotating.overrides)
	assert.Equal(t, "2001:db8::1", rotating.dialer.LocalAddr.(*net.TCPAddr).IP.String())
}

func TestSourceDialer_PinnedHostReachesTarget(t *testing.T) {
	ln, err := net.Listen("tcp6", "[::1]:0")
	if err != nil {
		t.Skipf("IPv6 loopback unavailable: %v", err)
	}
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s via %s", r.Host, r.RemoteAddr)
	}))
	srv.Listener = ln
	srv.Start()
	defer srv.Close()

	target := netip.MustParseAddrPort(ln.Addr().String())
	table, err := Overrides().Pin("Gallery.Example.", target).Build()
	require.NoError(t, err)

	c, err := Build(mustBlock(t, "::1/128"), table, nil)
	require.NoError(t, err)

	body, err := c.GetBytes(context.Background(), "http://gallery.example:8080/g/1")
	require.NoError(t, err)
	assert.Contains(t, string(body), "gallery.example:8080 via [::1]:")
}
