package rates_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/grana-finance/grana-go/internal/infra/cache"
	"github.com/grana-finance/grana-go/internal/infra/observability"
	"github.com/grana-finance/grana-go/internal/infra/rates"
	"github.com/grana-finance/grana-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func newClient(t *testing.T, feedURL string, override float64) *rates.CDIClient {
	t.Helper()
	return rates.NewCDIClient(
		&http.Client{Timeout: 2 * time.Second},
		feedURL,
		override,
		10.65,
		resilience.NewCircuitBreaker("cdi-test"),
		resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond},
		cache.New[float64](time.Minute),
		cache.New[map[string]float64](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func TestCurrentAnnualPercent_UsesFeedLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"data":"02/01/2024","valor":"11.15"},{"data":"03/01/2024","valor":"11.25"}]`))
	}))
	defer srv.Close()

	rate, err := newClient(t, srv.URL, 0).CurrentAnnualPercent(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rate != 11.25 {
		t.Errorf("expected latest observation 11.25, got %f", rate)
	}
}

func TestCurrentAnnualPercent_OverrideWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("feed should not be called when override is set")
	}))
	defer srv.Close()

	rate, err := newClient(t, srv.URL, 12.5).CurrentAnnualPercent(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rate != 12.5 {
		t.Errorf("expected override 12.5, got %f", rate)
	}
}

func TestCurrentAnnualPercent_FallsBackWhenFeedDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rate, err := newClient(t, srv.URL, 0).CurrentAnnualPercent(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rate != 10.65 {
		t.Errorf("expected fallback 10.65, got %f", rate)
	}
}

func TestDailyHistory_KeysByISODate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"data":"02/01/2024","valor":"11.15"},{"data":"03/01/2024","valor":"11.25"}]`))
	}))
	defer srv.Close()

	history, err := newClient(t, srv.URL, 0).DailyHistory(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(history))
	}
	if history["2024-01-02"] != 11.15 || history["2024-01-03"] != 11.25 {
		t.Errorf("unexpected history: %v", history)
	}
}

func TestDailyHistory_FeedErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, 0).DailyHistory(context.Background(), time.Now().AddDate(0, -1, 0), time.Now())
	if err == nil {
		t.Fatal("expected error when feed is down")
	}
}

func TestDailyHistory_CachesResult(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"data":"02/01/2024","valor":"11.15"}]`))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, 0)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := client.DailyHistory(context.Background(), from, to); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected a single upstream call, got %d", calls)
	}
}
