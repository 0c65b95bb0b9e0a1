package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAlbum(t *testing.T) {
	before := testutil.ToFloat64(AlbumFetches.WithLabelValues("metrics-test", ResultError))
	RecordAlbum("metrics-test", errors.New("boom"))
	RecordAlbum("metrics-test", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(AlbumFetches.WithLabelValues("metrics-test", ResultError)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(AlbumFetches.WithLabelValues("metrics-test", ResultSuccess)), 1.0)
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(KVCache.WithLabelValues(CacheHit))
	misses := testutil.ToFloat64(KVCache.WithLabelValues(CacheMiss))
	RecordCache(true)
	RecordCache(false)
	RecordCache(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(KVCache.WithLabelValues(CacheHit)))
	assert.Equal(t, misses+2, testutil.ToFloat64(KVCache.WithLabelValues(CacheMiss)))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	RecordItem(time.Now(), nil)
	Retries.Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "ghostfetch_item_fetch_total")
	assert.Contains(t, string(body), "ghostfetch_item_fetch_duration_seconds_bucket")
	assert.Contains(t, string(body), "ghostfetch_retries_total")
	assert.NotContains(t, string(body), "go_goroutines")
}
