package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHTTPRequest(t *testing.T) {
	c := New()
	c.ObserveHTTPRequest("/api/v1/quote", http.MethodGet, 200, 30*time.Millisecond)
	c.ObserveHTTPRequest("/api/v1/quote", http.MethodGet, 502, time.Second)

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("/api/v1/quote", "GET", "200")); got != 1 {
		t.Fatalf("expected 1 successful request, got %v", got)
	}
	if got := testutil.ToFloat64(c.httpErrors.WithLabelValues("/api/v1/quote", "GET")); got != 1 {
		t.Fatalf("expected 1 server error, got %v", got)
	}
}

func TestObserveOperationLabelsByCode(t *testing.T) {
	c := New()
	c.ObserveOperation("swap", "testnet", "", 2*time.Second)
	c.ObserveOperation("swap", "testnet", "SWAP_EXECUTION_FAILED", time.Second)
	c.ObserveJob("swap", "failed")

	if got := testutil.ToFloat64(c.operations.WithLabelValues("swap", "testnet", "SWAP_EXECUTION_FAILED")); got != 1 {
		t.Fatalf("expected failure counted, got %v", got)
	}
	if n := testutil.CollectAndCount(c.operations); n != 2 {
		t.Fatalf("expected 2 series, got %d", n)
	}
	if got := testutil.ToFloat64(c.jobs.WithLabelValues("swap", "failed")); got != 1 {
		t.Fatalf("expected job counted, got %v", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	c := New()
	c.ObserveOperation("quote", "mainnet", "", time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `hederadex_dex_operations_total{code="",network="mainnet",op="quote"} 1`) {
		t.Fatalf("metric missing from exposition:\n%s", body)
	}
}
