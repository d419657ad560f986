// Package rates supplies the CDI benchmark rate from the Banco Central
// SGS series API, with an env override for development and a hardcoded
// fallback when the feed is unreachable.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/grana-finance/grana-go/internal/domain"
	"github.com/grana-finance/grana-go/internal/infra/observability"
	"github.com/grana-finance/grana-go/internal/infra/resilience"
	"github.com/grana-finance/grana-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("rates")

// sgsDateLayout is the date format of the SGS API ("02/01/2006").
const sgsDateLayout = "02/01/2006"

// CDIClient fetches the annualized CDI series (SGS 4389, % a.a.) and
// implements port.RateSource. Resolution order for the current rate:
// env override, then the feed, then the hardcoded fallback.
type CDIClient struct {
	httpClient     *http.Client
	feedURL        string
	annualOverride float64
	fallbackAnnual float64
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	current        port.Cache[float64]
	history        port.Cache[map[string]float64]
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewCDIClient creates a CDI rate source.
func NewCDIClient(
	httpClient *http.Client,
	feedURL string,
	annualOverride, fallbackAnnual float64,
	cb *gobreaker.CircuitBreaker,
	cfg resilience.Config,
	current port.Cache[float64],
	history port.Cache[map[string]float64],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CDIClient {
	return &CDIClient{
		httpClient:     httpClient,
		feedURL:        feedURL,
		annualOverride: annualOverride,
		fallbackAnnual: fallbackAnnual,
		cb:             cb,
		cfg:            cfg,
		current:        current,
		history:        history,
		metrics:        metrics,
		logger:         logger,
	}
}

// sgsRow is one observation in the SGS JSON payload. Values come back as
// strings.
type sgsRow struct {
	Date  string `json:"data"`
	Value string `json:"valor"`
}

// CurrentAnnualPercent returns the latest CDI in % a.a. It never fails:
// when the feed is down the fallback rate is used so growth projections
// stay available.
func (c *CDIClient) CurrentAnnualPercent(ctx context.Context) (float64, error) {
	ctx, span := tracer.Start(ctx, "CDI.CurrentAnnualPercent")
	defer span.End()

	if c.annualOverride > 0 {
		return c.annualOverride, nil
	}

	if rate, ok := c.current.Get("current"); ok {
		c.metrics.IncrCacheHit("rates")
		return rate, nil
	}
	c.metrics.IncrCacheMiss("rates")

	// The series skips weekends and holidays; a two-week lookback always
	// contains at least one observation.
	now := time.Now()
	rows, err := c.fetch(ctx, now.AddDate(0, 0, -14), now)
	if err != nil || len(rows) == 0 {
		c.metrics.IncrExternalError("bcb")
		c.logger.Warn("cdi feed unavailable, using fallback rate",
			zap.Float64("fallback", c.fallbackAnnual),
			zap.Error(err),
		)
		return c.fallbackAnnual, nil
	}

	rate, err := strconv.ParseFloat(rows[len(rows)-1].Value, 64)
	if err != nil {
		c.logger.Warn("cdi feed returned malformed value, using fallback rate",
			zap.String("value", rows[len(rows)-1].Value),
		)
		return c.fallbackAnnual, nil
	}

	c.current.Set("current", rate)
	span.SetAttributes(attribute.Float64("rate.annual", rate))
	return rate, nil
}

// DailyHistory returns the CDI series between from and to as a map keyed
// by "2006-01-02" dates. Historical projections need the real series, so
// a feed failure is surfaced instead of papered over.
func (c *CDIClient) DailyHistory(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	ctx, span := tracer.Start(ctx, "CDI.DailyHistory")
	defer span.End()

	key := fmt.Sprintf("history:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if cached, ok := c.history.Get(key); ok {
		c.metrics.IncrCacheHit("rates")
		return cached, nil
	}
	c.metrics.IncrCacheMiss("rates")

	rows, err := c.fetch(ctx, from, to)
	if err != nil {
		c.metrics.IncrExternalError("bcb")
		return nil, &domain.ErrExternalService{Service: "bcb/sgs", Err: err}
	}

	history := make(map[string]float64, len(rows))
	for _, row := range rows {
		d, err := time.Parse(sgsDateLayout, row.Date)
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(row.Value, 64)
		if err != nil {
			continue
		}
		history[d.Format("2006-01-02")] = v
	}

	c.history.Set(key, history)
	span.SetAttributes(attribute.Int("rate.observations", len(history)))
	return history, nil
}

// fetch pulls the raw series under the breaker and retry policy.
func (c *CDIClient) fetch(ctx context.Context, from, to time.Time) ([]sgsRow, error) {
	url := fmt.Sprintf("%s?formato=json&dataInicial=%s&dataFinal=%s",
		c.feedURL, from.Format(sgsDateLayout), to.Format(sgsDateLayout))

	var rows []sgsRow
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("sgs returned status %d: %s", resp.StatusCode, string(body))
			}

			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode sgs payload: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
