package transport

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ghostfetch/internal/shared/errs"
	"ghostfetch/internal/shared/logger"
	"ghostfetch/internal/shared/types"
)

const (
	headerForwardedFor  = "X-Forwarded-For"
	headerAuthorization = "X-Authorization"
)

// ProxiedClient 通过 edge worker 转发请求：请求发往 endpoint，真实目标放在
// X-Forwarded-For，凭据放在 X-Authorization。调用方不应覆盖这两个头。
// 未配置 endpoint 时直接请求目标。
type ProxiedClient struct {
	endpoint      *url.URL
	authorization string
	inner         *http.Client
}

func NewProxiedClient(endpoint, authorization string, headers http.Header) (*ProxiedClient, error) {
	p := &ProxiedClient{
		authorization: authorization,
		inner: &http.Client{
			Transport: &headerTransport{base: http.DefaultTransport, headers: headers.Clone()},
			Timeout:   defaultTimeout,
		},
	}
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, errs.New(errs.Configuration, "invalid proxy endpoint ", endpoint).Base(err)
		}
		p.endpoint = u
	}
	return p, nil
}

// NewProxiedClientFromConfig builds the client from the [proxy] section.
func NewProxiedClientFromConfig(conf types.ProxyConf) (*ProxiedClient, error) {
	if strings.TrimSpace(conf.Endpoint) == "" {
		l := logger.WithComponent("Transport/Proxied")
		l.Warn().Msg("Initialized ProxiedClient without proxy config, requests go direct.")
	}
	return NewProxiedClient(conf.Endpoint, conf.Authorization, nil)
}

func (p *ProxiedClient) Enabled() bool {
	return p.endpoint != nil
}

// Request builds a request for any method, addressed to the proxy when one is configured.
func (p *ProxiedClient) Request(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	if p.endpoint == nil {
		return http.NewRequestWithContext(ctx, method, rawURL, body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerForwardedFor, rawURL)
	req.Header.Set(headerAuthorization, p.authorization)
	return req, nil
}

func (p *ProxiedClient) Do(req *http.Request) (*http.Response, error) {
	return p.inner.Do(req)
}
