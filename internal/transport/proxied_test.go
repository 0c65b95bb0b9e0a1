package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostfetch/internal/shared/errs"
	"ghostfetch/internal/shared/types"
)

func TestProxiedClient_ForwardsThroughEndpoint(t *testing.T) {
	edge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s %s %s %s", r.Method, r.URL.Path, r.Header.Get(headerForwardedFor), r.Header.Get(headerAuthorization))
	}))
	defer edge.Close()

	p, err := NewProxiedClient(edge.URL+"/forward", "token-1", nil)
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	body, err := GetBytes(context.Background(), p, "https://api.example.test/getPage")
	require.NoError(t, err)
	assert.Equal(t, "GET /forward https://api.example.test/getPage token-1", string(body))
}

func TestProxiedClient_DirectWithoutEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s|%s", r.URL.Path, r.Header.Get(headerForwardedFor))
	}))
	defer srv.Close()

	p, err := NewProxiedClientFromConfig(types.ProxyConf{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	req, err := p.Request(context.Background(), http.MethodDelete, srv.URL+"/direct", nil)
	require.NoError(t, err)
	resp, err := p.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewProxiedClient_InvalidEndpoint(t *testing.T) {
	_, err := NewProxiedClient("ftp://edge.example.test", "x", nil)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.Configuration))
}
