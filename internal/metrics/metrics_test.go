package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveRequest("GET", 200)
	m.ObserveRequest("GET", 200)
	m.ObserveRequest("POST", 0)
	m.ObserveLookup(CacheHit)
	m.ObserveInvalidated(3)
	m.ObserveInvalidated(0)
	m.ObserveMutation(nil)
	m.ObserveMutation(errors.New("boom"))

	require.Equal(t, 2.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("GET", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("POST", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues(CacheHit)))
	require.Equal(t, 3.0, testutil.ToFloat64(m.Invalidations))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", 500)
	m.ObserveLookup(CacheMiss)
	m.ObserveMutation(nil)
	require.NoError(t, m.WriteTextfile("ignored.prom"))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveRefresh("success")

	path := filepath.Join(t.TempDir(), "steelpos.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(raw), `steelpos_api_token_refresh_total{result="success"} 1`))
}
