package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"ghostfetch/internal/shared/errs"
	"ghostfetch/internal/shared/logger"
)

// UserAgent is sent on every request unless the default headers carry their own.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/97.0.4692.99 Safari/537.36"

const (
	defaultTimeout        = 60 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	idleConnTimeout       = 90 * time.Second
	expectContinueTimeout = time.Second
)

// Requester is the minimal surface shared by Client and ProxiedClient.
type Requester interface {
	Request(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error)
	Do(req *http.Request) (*http.Response, error)
}

// HTTPStatusError 表示上游返回了非 2xx 的状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Client 是会轮换源地址的 HTTP 客户端（ghost client）。
//
// 每个实例在构造时从 AddressBlock 抽取一个源地址并固定下来；Clone 得到一个
// 新地址的独立实例，Refresh 则原地替换内部 http.Client。
// block 为空时退化为普通客户端：不绑定源地址，也不应用解析覆盖。
type Client struct {
	block     *AddressBlock
	overrides *OverrideTable
	headers   http.Header

	mu    sync.RWMutex
	local netip.Addr
	inner *http.Client
}

// Build constructs a client. A failure here is a configuration error.
func Build(block *AddressBlock, overrides *OverrideTable, headers http.Header) (*Client, error) {
	if block != nil && !block.IsValid() {
		return nil, errs.New(errs.Configuration, "address block is not initialised")
	}
	c := &Client{
		block:     block,
		overrides: overrides,
		headers:   headers.Clone(),
	}
	if err := c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

// Clone returns an independent client with a freshly drawn source address.
func (c *Client) Clone() (*Client, error) {
	return Build(c.block, c.overrides, c.headers)
}

// Refresh replaces the inner client so the next request leaves from a new address.
func (c *Client) Refresh() error {
	inner, local, err := buildRaw(c.block, c.overrides, c.headers)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.inner = inner
	c.local = local
	c.mu.Unlock()

	if local.IsValid() {
		l := logger.WithComponent("Transport/Client")
		l.Debug().Str("local_addr", local.String()).Str("block", c.block.String()).Msg("Source address selected.")
	}
	return nil
}

// LocalAddr is the bound source address; zero when rotation is disabled.
func (c *Client) LocalAddr() netip.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.local
}

func (c *Client) Rotating() bool {
	return c.block != nil
}

func (c *Client) current() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner
}

// RoundTripper exposes the transport of the current inner client.
func (c *Client) RoundTripper() http.RoundTripper {
	return c.current().Transport
}

// Request builds a request for any method; default headers are applied at round-trip time.
func (c *Client) Request(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, rawURL, body)
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.current().Do(req)
}

func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := c.Request(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// GetBytes downloads the whole body. Transport failures and non-2xx statuses are Upstream errors.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return GetBytes(ctx, c, rawURL)
}

// GetBytes performs a GET through any Requester and buffers the body.
func GetBytes(ctx context.Context, r Requester, rawURL string) ([]byte, error) {
	req, err := r.Request(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.New(errs.InvalidReference, "bad url ", rawURL).Base(err)
	}
	resp, err := r.Do(req)
	if err != nil {
		return nil, errs.New(errs.Upstream, "GET ", rawURL).Base(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.New(errs.Upstream, "GET ", rawURL).Base(&HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode})
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.Upstream, "read body of ", rawURL).Base(err)
	}
	return b, nil
}

func buildRaw(block *AddressBlock, overrides *OverrideTable, headers http.Header) (*http.Client, netip.Addr, error) {
	var local netip.Addr
	if block != nil {
		local = block.Random()
	}
	d := newSourceDialer(local, overrides)

	base := &http.Transport{
		DialContext:           d.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: expectContinueTimeout,
	}
	if block == nil {
		base.Proxy = http.ProxyFromEnvironment
	} else {
		// 轮换模式：不走环境代理（否则源地址就是代理的地址），也不复用连接。
		base.DisableKeepAlives = true
	}

	return &http.Client{
		Transport: &headerTransport{base: base, headers: headers},
		Timeout:   defaultTimeout,
	}, local, nil
}

// headerTransport fills in default headers and the fixed UA without touching the caller's request.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, vs := range t.headers {
		if r.Header.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	if strings.TrimSpace(r.Header.Get("User-Agent")) == "" {
		r.Header.Set("User-Agent", UserAgent)
	}
	return t.base.RoundTrip(r)
}
