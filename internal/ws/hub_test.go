package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/engine"
	"github.com/statuspulse/statuspulse/internal/probe"
	"github.com/statuspulse/statuspulse/internal/timeseries"
	"github.com/statuspulse/statuspulse/internal/ws"
)

const snapshotInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

// switchProber reports whatever status the test last set.
type switchProber struct {
	mu     sync.Mutex
	status timeseries.Status
}

func (p *switchProber) Probe(ctx context.Context) (probe.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return probe.Result{Status: p.status, LatencyMs: 5, HasLatency: true}, nil
}

func (p *switchProber) set(s timeseries.Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// testEngine tracks the given ids, all backed by the returned switchProber.
func testEngine(t *testing.T, ids ...string) (*engine.Engine, *switchProber) {
	t.Helper()
	sp := &switchProber{status: timeseries.StatusUp}
	eng := engine.New(engine.Options{
		Retention:     24 * time.Hour,
		DefaultWindow: 15 * time.Minute,
		ProbeTimeout:  time.Second,
		NewProber: func(config.Service, config.ProbeConfig) (probe.Prober, error) {
			return sp, nil
		},
	})
	services := make([]config.Service, 0, len(ids))
	for _, id := range ids {
		services = append(services, config.Service{ID: id, Name: id, URL: "https://" + id + ".example.com"})
	}
	eng.SetTrackedServices(services)
	return eng, sp
}

// serveHub runs hub behind an httptest server and starts its loop.
func serveHub(t *testing.T, hub *ws.Hub) (wsURL string, stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(hub)
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), cancel
}

// connect dials wsURL and returns the connection plus the first message,
// decoded. Every session gets a snapshot on connect, so there is always one.
func connect(t *testing.T, wsURL string) (*websocket.Conn, map[string]interface{}) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, next(t, conn)
}

// next reads and decodes one message from conn.
func next(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return m
}

func settle() { time.Sleep(30 * time.Millisecond) }

// --- tests ------------------------------------------------------------------

func TestConnect_SnapshotSentImmediately(t *testing.T) {
	eng, _ := testEngine(t, "web", "db")
	url, _ := serveHub(t, ws.New(eng, snapshotInterval))

	_, first := connect(t, url)

	if first["event"] != "snapshot" {
		t.Errorf("event: got %v, want snapshot", first["event"])
	}
	data, ok := first["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	services, ok := data["services"].([]interface{})
	if !ok || len(services) != 2 {
		t.Errorf("services in snapshot: got %v, want 2 entries", data["services"])
	}
	if data["generated_at"] == nil || data["generated_at"] == "" {
		t.Error("generated_at: missing")
	}
}

func TestConnect_NoTrackedServices(t *testing.T) {
	eng, _ := testEngine(t)
	url, _ := serveHub(t, ws.New(eng, snapshotInterval))

	_, first := connect(t, url)
	data := first["data"].(map[string]interface{})
	if services, ok := data["services"].([]interface{}); ok && len(services) != 0 {
		t.Errorf("services: got %d entries, want 0", len(services))
	}
}

func TestSnapshots_ArriveOnInterval(t *testing.T) {
	eng, _ := testEngine(t, "web")
	url, _ := serveHub(t, ws.New(eng, snapshotInterval))

	conn, _ := connect(t, url)

	// Beyond the connect-time snapshot, the ticker keeps them coming.
	for i := 0; i < 2; i++ {
		m := next(t, conn)
		if m["event"] != "snapshot" {
			t.Fatalf("message %d: got event %v, want snapshot", i, m["event"])
		}
	}
}

func TestTransitions_RelayedToObservers(t *testing.T) {
	eng, sp := testEngine(t, "web")
	url, _ := serveHub(t, ws.New(eng, snapshotInterval))

	conn, _ := connect(t, url)

	// Baseline refresh emits nothing; the flip to down must show up on the
	// wire ahead of, or between, snapshot ticks.
	if _, _, err := eng.RefreshOne(context.Background(), "web"); err != nil {
		t.Fatalf("baseline refresh: %v", err)
	}
	sp.set(timeseries.StatusDown)
	if _, _, err := eng.RefreshOne(context.Background(), "web"); err != nil {
		t.Fatalf("down refresh: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m := next(t, conn)
		if m["event"] != "transition" {
			continue
		}
		data := m["data"].(map[string]interface{})
		if data["service"] != "web" || data["type"] != "failure_started" {
			t.Errorf("transition payload: got %v, want web/failure_started", data)
		}
		return
	}
	t.Fatal("no transition message arrived")
}

func TestCount_TracksSessions(t *testing.T) {
	eng, _ := testEngine(t)
	hub := ws.New(eng, snapshotInterval)
	url, _ := serveHub(t, hub)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i], _ = connect(t, url)
	}
	settle()
	if n := hub.Count(); n != 3 {
		t.Errorf("Count with 3 observers: got %d", n)
	}

	conns[0].Close()
	time.Sleep(100 * time.Millisecond)
	if n := hub.Count(); n != 2 {
		t.Errorf("Count after one disconnect: got %d, want 2", n)
	}
}

func TestOnObserverChange_FiresOnEdges(t *testing.T) {
	eng, _ := testEngine(t)
	hub := ws.New(eng, snapshotInterval)

	var mu sync.Mutex
	var counts []int
	hub.OnObserverChange = func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	}

	url, _ := serveHub(t, hub)
	conn, _ := connect(t, url)
	settle()
	conn.Close()
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(counts) < 2 {
		t.Fatalf("callback invocations: got %v, want connect then disconnect", counts)
	}
	if counts[0] != 1 {
		t.Errorf("count on connect: got %d, want 1", counts[0])
	}
	if counts[len(counts)-1] != 0 {
		t.Errorf("count on last disconnect: got %d, want 0", counts[len(counts)-1])
	}
}

func TestShutdown_DisconnectsEverySession(t *testing.T) {
	eng, _ := testEngine(t)
	hub := ws.New(eng, snapshotInterval)
	url, stop := serveHub(t, hub)

	connect(t, url)
	connect(t, url)
	settle()

	stop()
	time.Sleep(100 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after shutdown: got %d, want 0", n)
	}
}

func TestBroadcastSurvivesDisconnectChurn(t *testing.T) {
	eng, _ := testEngine(t, "web")
	hub := ws.New(eng, time.Millisecond)
	url, _ := serveHub(t, hub)

	// Observers leaving mid-broadcast must not take the hub loop down with
	// a write to a closed queue.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		conn.Close()
	}

	conn, first := connect(t, url)
	if first["event"] != "snapshot" {
		t.Errorf("event after churn: got %v, want snapshot", first["event"])
	}
	if m := next(t, conn); m["event"] != "snapshot" {
		t.Errorf("ticker event after churn: got %v, want snapshot", m["event"])
	}
}

func TestPlainHTTPRequestIsRejected(t *testing.T) {
	eng, _ := testEngine(t)
	srv := httptest.NewServer(ws.New(eng, snapshotInterval))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status without upgrade headers: got %d, want 400", resp.StatusCode)
	}
}
