package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/timeseries"
)

func newProber(t *testing.T, svc config.Service) Prober {
	t.Helper()
	p, err := New(svc, config.ProbeConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestHTTPProber_StatusOKIsUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newProber(t, config.Service{ID: "svc", URL: srv.URL})
	res, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Status != timeseries.StatusUp {
		t.Errorf("Status: got %q, want up", res.Status)
	}
	if !res.HasLatency {
		t.Error("HasLatency: got false, want true")
	}
}

func TestHTTPProber_ServerErrorIsDownNotFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := newProber(t, config.Service{ID: "svc", URL: srv.URL})
	res, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe on 503: got error %v, want a down sample", err)
	}
	if res.Status != timeseries.StatusDown {
		t.Errorf("Status: got %q, want down", res.Status)
	}
}

func TestHTTPProber_ConnectionRefusedIsNetworkFailure(t *testing.T) {
	// A server that is already closed refuses connections.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := newProber(t, config.Service{ID: "svc", URL: url})
	_, err := p.Probe(context.Background())

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Probe: got %v, want *probe.Error", err)
	}
	if perr.Cause != CauseNetwork {
		t.Errorf("Cause: got %q, want network", perr.Cause)
	}
}

func TestHTTPProber_DeadlineIsTimeout(t *testing.T) {
	stall := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-stall
	}))
	defer func() { close(stall); srv.Close() }()

	p := newProber(t, config.Service{ID: "svc", URL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Probe(ctx)

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Probe: got %v, want *probe.Error", err)
	}
	if perr.Cause != CauseTimeout {
		t.Errorf("Cause: got %q, want timeout", perr.Cause)
	}
}

func TestMetricsProber_GaugeJudgesReachability(t *testing.T) {
	body := "# TYPE up gauge\nup 1\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	p := newProber(t, config.Service{
		ID: "prom", URL: srv.URL, Probe: config.ProbeMetrics, Metric: "up",
	})

	res, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Status != timeseries.StatusUp {
		t.Errorf("Status with up=1: got %q, want up", res.Status)
	}

	body = "# TYPE up gauge\nup 0\n"
	res, err = p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Status != timeseries.StatusDown {
		t.Errorf("Status with up=0: got %q, want down", res.Status)
	}
}

func TestMetricsProber_MissingMetricIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# TYPE something_else counter\nsomething_else 3\n"))
	}))
	defer srv.Close()

	p := newProber(t, config.Service{
		ID: "prom", URL: srv.URL, Probe: config.ProbeMetrics, Metric: "up",
	})

	_, err := p.Probe(context.Background())
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Probe: got %v, want *probe.Error for absent metric", err)
	}
	if perr.Cause != CauseOther {
		t.Errorf("Cause: got %q, want other", perr.Cause)
	}
}

func TestMetricsProber_Non200IsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := newProber(t, config.Service{
		ID: "prom", URL: srv.URL, Probe: config.ProbeMetrics, Metric: "up",
	})

	if _, err := p.Probe(context.Background()); err == nil {
		t.Fatal("Probe on 502 exposition endpoint: expected a collection error")
	}
}

func TestNew_RejectsUnknownProbeType(t *testing.T) {
	if _, err := New(config.Service{ID: "x", Probe: "icmp"}, config.ProbeConfig{}); err == nil {
		t.Fatal("New: expected error for unknown probe type")
	}
}
