package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/gatehouse/gatehouse/internal/testsupport"
)

// Metrics flow through the process-global default registry, so these tests
// assert deltas rather than absolute values and must not run in parallel
// with each other.
func TestMetricsMiddleware(t *testing.T) {
	a := NewAPI(&stubService{
		isFlagEnabled: func(context.Context, string, string) (bool, error) {
			return true, nil
		},
	}, nil)

	t.Run("Requests are counted with the route pattern label", func(t *testing.T) {
		labels := map[string]string{
			"method": http.MethodPost,
			"path":   "/api/v1/evaluate",
			"code":   "200",
		}

		testsupport.AssertMetricDelta(t, "gatehouse_http_requests_total", labels, 1, func() {
			rec := doJSON(t, a, http.MethodPost, "/api/v1/evaluate", "tok-1", EvaluateRequest{Flag: "beta"})
			if rec.Code != http.StatusOK {
				t.Fatalf("unexpected status %d", rec.Code)
			}
		})
	})

	t.Run("Latency histogram records samples", func(t *testing.T) {
		rec := doJSON(t, a, http.MethodPost, "/api/v1/evaluate", "tok-1", EvaluateRequest{Flag: "beta"})
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", rec.Code)
		}

		testsupport.AssertHistogramRecorded(t, "gatehouse_http_handling_seconds", map[string]string{
			"method": http.MethodPost,
			"path":   "/api/v1/evaluate",
		})
	})

	t.Run("Parameterized routes keep bounded cardinality", func(t *testing.T) {
		a2 := NewAPI(&stubService{
			archiveFlag: func(context.Context, string, string) error { return nil },
		}, nil)

		labels := map[string]string{
			"method": http.MethodDelete,
			"path":   "/api/v1/flags/{name}",
			"code":   "204",
		}

		testsupport.AssertMetricDelta(t, "gatehouse_http_requests_total", labels, 2, func() {
			for _, name := range []string{"beta", "dark-mode"} {
				rec := doJSON(t, a2, http.MethodDelete, "/api/v1/flags/"+name, "tok-admin", nil)
				if rec.Code != http.StatusNoContent {
					t.Fatalf("unexpected status %d", rec.Code)
				}
			}
		})
	})
}
