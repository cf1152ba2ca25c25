package kms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nasa/earthdata-mcp/internal/platform/logger"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return log
}

func TestLookupTermCachesAcrossCalls(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/concepts/concept_scheme/sciencekeywords/pattern/MODIS" {
			_, _ = w.Write([]byte(`{"concepts":[{"prefLabel":"MODIS","uuid":"abc-123"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"definition":"Moderate Resolution Imaging Spectroradiometer"}`))
	}))
	defer srv.Close()

	c, err := NewClient(testLogger(t), srv.URL, 0)
	require.NoError(t, err)

	term := c.LookupTerm(context.Background(), "MODIS", "sciencekeywords")
	require.NotNil(t, term)
	require.Equal(t, "abc-123", term.UUID)
	require.Equal(t, "Moderate Resolution Imaging Spectroradiometer", *term.Definition)

	callsAfterFirst := atomic.LoadInt32(&hits)

	term2 := c.LookupTerm(context.Background(), "MODIS", "sciencekeywords")
	require.NotNil(t, term2)
	require.Equal(t, callsAfterFirst, atomic.LoadInt32(&hits), "second lookup should be served from cache")
}

func TestLookupTermNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"concepts":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(testLogger(t), srv.URL, 0)
	require.NoError(t, err)

	term := c.LookupTerm(context.Background(), "UNKNOWNTERM", "sciencekeywords")
	require.Nil(t, term)
}

func TestClearCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/concepts/concept_scheme/platforms/pattern/TERRA" {
			_, _ = w.Write([]byte(`{"concepts":[{"prefLabel":"TERRA","uuid":"t-1"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"definition":"Terra satellite"}`))
	}))
	defer srv.Close()

	c, err := NewClient(testLogger(t), srv.URL, 0)
	require.NoError(t, err)

	_ = c.LookupTerm(context.Background(), "TERRA", "platforms")
	firstHits := atomic.LoadInt32(&hits)

	c.ClearCache()
	_ = c.LookupTerm(context.Background(), "TERRA", "platforms")
	require.Greater(t, atomic.LoadInt32(&hits), firstHits)
}
