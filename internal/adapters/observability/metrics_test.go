package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hotlob_places/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so vectors are exported
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveExternal("places", "details", 200, 30*time.Millisecond)
	observability.ObserveRefresh("full", false)
	observability.ObserveSelection(5)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, want := range []string{
		"places_http_requests_total",
		"places_external_requests_total",
		`places_refresh_runs_total{outcome="failed",scope="full"} 1`,
		"places_featured_reviews 5",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output", want)
		}
	}
}

func TestServe_ExportsAppMetrics(t *testing.T) {
	reg := observability.InitRegistry()
	observability.ObserveRefresh("full", true)
	observability.ObserveSelection(3)

	addr, err := observability.Serve("127.0.0.1:0", reg)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	out := string(body)
	for _, want := range []string{
		`places_refresh_runs_total{outcome="ok",scope="full"}`,
		"places_featured_reviews 3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in scrape output", want)
		}
	}
}

func TestServe_EmptyAddrDisabled(t *testing.T) {
	addr, err := observability.Serve("", observability.InitRegistry())
	if err != nil || addr != nil {
		t.Fatalf("addr=%v err=%v", addr, err)
	}
}
