// Package remote talks to an edge worker that proxies a hosted KV namespace.
package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ghostfetch/internal/shared/errs"
	"ghostfetch/internal/transport"
)

// ErrNotFound is returned by Client when the worker answers 404.
var ErrNotFound = errors.New("key not found")

// Client speaks the worker contract: GET|PUT|DELETE {endpoint}/{key} with a bearer token.
type Client struct {
	endpoint string
	token    string
	http     transport.Requester
}

func NewClient(endpoint, token string, r transport.Requester) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errs.New(errs.Configuration, "invalid worker kv endpoint: ", endpoint).Base(err)
	}
	return &Client{endpoint: endpoint, token: token, http: r}, nil
}

func (c *Client) keyURL(key string) string {
	return c.endpoint + "/" + url.PathEscape(key)
}

func (c *Client) call(ctx context.Context, method, key string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := c.http.Request(ctx, method, c.keyURL(key), reader)
	if err != nil {
		return nil, errs.New(errs.Storage, "build ", method, " request for ", key).Base(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.New(errs.Storage, method, " ", key).Base(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.Storage, "read ", method, " response for ", key).Base(err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errs.New(errs.Storage, method, " ", key).
			Base(&transport.HTTPStatusError{URL: req.URL.String(), StatusCode: resp.StatusCode})
	}
	return data, nil
}

// Get returns the raw stored value or ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.call(ctx, http.MethodGet, key, nil)
}

func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.call(ctx, http.MethodPut, key, value)
	return err
}

func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.call(ctx, http.MethodDelete, key, nil)
	return err
}
