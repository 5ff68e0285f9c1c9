package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/timeseries"
)

// Result is one successfully collected sample.
type Result struct {
	// Status is StatusUp or StatusDown — a collected sample is always
	// definite; unknown arises only from collection failures.
	Status timeseries.Status

	// LatencyMs is the measured response time, valid when HasLatency.
	LatencyMs  int64
	HasLatency bool
}

// Prober samples one service's reachability.
// Implementations must honour ctx cancellation and deadlines; an expired
// deadline surfaces as an *Error with CauseTimeout.
type Prober interface {
	Probe(ctx context.Context) (Result, error)
}

// New builds the Prober for svc. The returned prober reuses its HTTP
// client across probes.
func New(svc config.Service, shared config.ProbeConfig) (Prober, error) {
	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: shared.InsecureSkipVerify, //nolint:gosec // user-configured
			},
		},
	}

	switch svc.Probe {
	case "", config.ProbeHTTP:
		return &HTTPProber{url: svc.URL, client: client}, nil
	case config.ProbeMetrics:
		return &MetricsProber{url: svc.URL, metric: svc.Metric, client: client}, nil
	default:
		return nil, fmt.Errorf("probe: unsupported type %q for %s", svc.Probe, svc.ID)
	}
}

// --- HTTP prober -------------------------------------------------------------

// HTTPProber samples reachability with a GET request: status < 400 is up,
// status >= 400 is down, a transport failure is a collection error.
type HTTPProber struct {
	url    string
	client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context) (Result, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Result{}, &Error{Cause: CauseOther, Err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, classify(err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20)) //nolint:errcheck

	latency := time.Since(start).Milliseconds()
	status := timeseries.StatusUp
	if resp.StatusCode >= 400 {
		status = timeseries.StatusDown
	}
	return Result{Status: status, LatencyMs: latency, HasLatency: true}, nil
}

// --- Metrics prober ----------------------------------------------------------

// MetricsProber scrapes a Prometheus text exposition endpoint and judges
// reachability from the configured gauge: a summed value > 0 is up, 0 is
// down. A fetch or parse failure is a collection error, and so is an
// exposition that does not carry the gauge at all.
type MetricsProber struct {
	url    string
	metric string
	client *http.Client
}

func (p *MetricsProber) Probe(ctx context.Context) (Result, error) {
	start := time.Now()

	mfs, err := fetchMetrics(ctx, p.client, p.url)
	if err != nil {
		return Result{}, err
	}
	latency := time.Since(start).Milliseconds()

	mf, ok := mfs[p.metric]
	if !ok {
		return Result{}, &Error{
			Cause: CauseOther,
			Err:   fmt.Errorf("metric %q absent from exposition", p.metric),
		}
	}

	status := timeseries.StatusDown
	if sumFamily(mf) > 0 {
		status = timeseries.StatusUp
	}
	return Result{Status: status, LatencyMs: latency, HasLatency: true}, nil
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Cause: CauseOther, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Cause: CauseOther, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, &Error{Cause: CauseOther, Err: fmt.Errorf("parse prometheus text: %w", err)}
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
func sumFamily(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}
