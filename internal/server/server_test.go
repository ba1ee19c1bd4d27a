package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"connwatch/internal/metrics"
	"connwatch/internal/models"
	"connwatch/internal/monitor"
	"connwatch/internal/platform/platformtest"
)

func startObserver(t *testing.T, p *platformtest.Platform) *monitor.Observer {
	t.Helper()
	obs := monitor.New(p, monitor.Options{Interval: time.Hour, Logger: log.New(io.Discard, "", 0)})
	obs.Start()
	t.Cleanup(obs.Stop)

	deadline := time.Now().Add(2 * time.Second)
	for obs.Status().HasInternetAccess == nil {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the first probe")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return obs
}

func getJSON(t *testing.T, url string, dest any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s returned %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestStatusEndpoints(t *testing.T) {
	obs := startObserver(t, platformtest.New(true).WithNetworkInfo("wifi"))
	srv := httptest.NewServer(New("", obs).Handler())
	defer srv.Close()

	var status models.Status
	getJSON(t, srv.URL+"/api/status", &status)
	want := models.Status{
		IsOnline:          models.Bool(true),
		ConnectionType:    models.String("WIFI"),
		HasInternetAccess: models.Bool(true),
	}
	if diff := cmp.Diff(want, status); diff != "" {
		t.Errorf("/api/status returned unexpected body (-want +got):\n%s", diff)
	}

	var probes []models.ProbeResult
	getJSON(t, srv.URL+"/api/probes?limit=5", &probes)
	if len(probes) != 1 || !probes[0].OK || !probes[0].Opaque {
		t.Errorf("/api/probes = %+v; want one opaque success", probes)
	}

	var uptime metrics.Reachability
	getJSON(t, srv.URL+"/api/uptime", &uptime)
	if uptime.TotalProbes != 1 || uptime.UptimePercent != 100 {
		t.Errorf("/api/uptime = %+v; want one passing probe", uptime)
	}
}

func TestStatusUndeterminedIsNull(t *testing.T) {
	obs := monitor.New(platformtest.New(true), monitor.Options{Logger: log.New(io.Discard, "", 0)})
	srv := httptest.NewServer(New("", obs).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	want := `{"is_online":null,"connection_type":null,"has_internet_access":null}`
	if got := strings.TrimSpace(string(body)); got != want {
		t.Errorf("/api/status = %s; want %s", got, want)
	}
}

func TestStatusStream(t *testing.T) {
	p := platformtest.New(true)
	obs := startObserver(t, p)
	srv := httptest.NewServer(New("", obs).Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/status/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first models.Status
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial status: %v", err)
	}
	if first.IsOnline == nil || !*first.IsOnline {
		t.Errorf("Initial status = %v; want online", first)
	}

	p.LinkFake.SetOnline(false)
	for {
		var next models.Status
		if err := conn.ReadJSON(&next); err != nil {
			t.Fatalf("read status update: %v", err)
		}
		if next.IsOnline != nil && !*next.IsOnline {
			if next.HasInternetAccess == nil || *next.HasInternetAccess {
				t.Errorf("Offline update = %v; want internet=false", next)
			}
			return
		}
	}
}

func TestStatusStreamRejectsForeignOrigin(t *testing.T) {
	obs := monitor.New(platformtest.New(true), monitor.Options{Logger: log.New(io.Discard, "", 0)})
	srv := httptest.NewServer(New("", obs).Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/status/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Error("Dial with a foreign origin unexpectedly succeeded")
	}
}
