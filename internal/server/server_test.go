package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/unklstewy/telex-livemap/pkg/config"
	"github.com/unklstewy/telex-livemap/pkg/telex"
)

var fixture = []telex.Connection{
	{
		ID:           "cxn-a",
		Flight:       "FBW1",
		Heading:      0,
		Location:     telex.Point{X: 4.76, Y: 52.31},
		TrueAltitude: 37000,
		AircraftType: "A380X-test",
		Origin:       "EHAM",
	},
	{
		ID:           "cxn-b",
		Flight:       "FBW2",
		Heading:      7.4,
		Location:     telex.Point{X: -0.46, Y: 51.47},
		TrueAltitude: 12500,
		AircraftType: "A32NX",
	},
}

// fakeTelex serves the TELEX listing and lookup endpoints.
func fakeTelex(t *testing.T, conns []telex.Connection, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		if r.URL.Path == "/txcxn" {
			skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
			take, _ := strconv.Atoi(r.URL.Query().Get("take"))
			end := skip + take
			if end > len(conns) {
				end = len(conns)
			}
			json.NewEncoder(w).Encode(telex.Page{Results: conns[skip:end], Count: end - skip, Total: len(conns)})
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/txcxn/")
		for _, c := range conns {
			if c.ID == id {
				json.NewEncoder(w).Encode(c)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, upstream *httptest.Server) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.StaticDir = t.TempDir()
	cfg.Server.RenderTimeoutSeconds = 5

	client := telex.NewClient(telex.Config{
		BaseURL:  upstream.URL,
		PageSize: 10,
		Timeout:  5 * time.Second,
	})
	return New(cfg, client, zerolog.Nop())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestMapPage(t *testing.T) {
	s := newTestServer(t, fakeTelex(t, fixture, http.StatusOK))

	t.Run("Default page", func(t *testing.T) {
		rec := get(t, s, "/")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}

		body := rec.Body.String()
		for _, want := range []string{
			`data-state="ready"`,
			"cxn-a",
			"cxn-b",
			"aircraft-icon-a380x.png",
			`class="map-legend"`,
			`style="display: block"`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("Expected page to contain %q", want)
			}
		}
	})

	t.Run("Full page hides footer", func(t *testing.T) {
		rec := get(t, s, "/map?fullpage=true&class=rounded")
		body := rec.Body.String()

		if !strings.Contains(body, `style="display: none"`) {
			t.Error("Expected footer hidden in full-page mode")
		}
		if !strings.Contains(body, "rounded full-page-map") {
			t.Error("Expected full-page class on container")
		}
	})

	t.Run("Basic variant has no legend", func(t *testing.T) {
		body := get(t, s, "/?variant=basic&fullpage=true").Body.String()

		if strings.Contains(body, `class="map-legend-entry"`) {
			t.Error("Expected no legend in basic variant")
		}
		if strings.Contains(body, "aircraft-icon-a380x.png") {
			t.Error("Expected generic icons in basic variant")
		}
		if !strings.Contains(body, `style="display: block"`) {
			t.Error("Expected basic variant to leave the footer visible")
		}
	})

	t.Run("Bad props", func(t *testing.T) {
		if rec := get(t, s, "/?fullpage=maybe"); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rec.Code)
		}
		if rec := get(t, s, "/?variant=fancy"); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rec.Code)
		}
	})
}

func TestMapPageUpstreamFailure(t *testing.T) {
	s := newTestServer(t, fakeTelex(t, nil, http.StatusInternalServerError))

	rec := get(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected page to render despite upstream failure, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `data-state="failed"`) {
		t.Error("Expected failed state on page")
	}
}

func TestMapPageEmbedsPopups(t *testing.T) {
	var lookups atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/txcxn" {
			lookups.Add(1)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(telex.Page{Results: fixture, Count: len(fixture), Total: len(fixture)})
	}))
	t.Cleanup(upstream.Close)
	s := newTestServer(t, upstream)

	rec := get(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`"popup":`,
		`data-connection=\"cxn-a\"`,
		`data-connection=\"cxn-b\"`,
		"007°",
		"12,500 ft",
		"F-PEGA",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
	if strings.Contains(body, "/popup") {
		t.Error("Expected page not to fetch popups separately")
	}
	if n := lookups.Load(); n != 0 {
		t.Errorf("Expected no per-connection lookups, got %d", n)
	}
}

func TestRenderTimeout(t *testing.T) {
	done := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-done:
		}
	}))
	t.Cleanup(upstream.Close)
	t.Cleanup(func() { close(done) })

	s := newTestServer(t, upstream)
	s.cfg.Server.RenderTimeoutSeconds = 1

	for _, path := range []string{"/api/v1/connections", "/api/v1/markers"} {
		t.Run(path, func(t *testing.T) {
			start := time.Now()
			rec := get(t, s, path)
			if rec.Code != http.StatusGatewayTimeout {
				t.Errorf("Expected status 504, got %d: %s", rec.Code, rec.Body.String())
			}
			if elapsed := time.Since(start); elapsed > 4*time.Second {
				t.Errorf("Expected response near the 1s render timeout, took %v", elapsed)
			}
		})
	}
}

func TestGetConnections(t *testing.T) {
	s := newTestServer(t, fakeTelex(t, fixture, http.StatusOK))

	rec := get(t, s, "/api/v1/connections")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	body := decode(t, rec)
	if body["count"] != float64(2) {
		t.Errorf("Expected count 2, got %v", body["count"])
	}
}

func TestGetConnectionsUpstreamFailure(t *testing.T) {
	s := newTestServer(t, fakeTelex(t, nil, http.StatusInternalServerError))

	rec := get(t, s, "/api/v1/connections")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", rec.Code)
	}
	if _, ok := decode(t, rec)["error"]; !ok {
		t.Error("Expected error field in response")
	}
}

func TestGetMarkers(t *testing.T) {
	s := newTestServer(t, fakeTelex(t, fixture, http.StatusOK))

	rec := get(t, s, "/api/v1/markers")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body struct {
		Markers []struct {
			ID       string  `json:"id"`
			IconURL  string  `json:"iconUrl"`
			Size     int     `json:"size"`
			Rotation float64 `json:"rotation"`
			Latitude float64 `json:"latitude"`
		} `json:"markers"`
		Count  int           `json:"count"`
		Legend []interface{} `json:"legend"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	if body.Count != 2 || len(body.Markers) != 2 {
		t.Fatalf("Expected 2 markers, got %d", len(body.Markers))
	}
	heavy := body.Markers[0]
	if heavy.ID != "cxn-a" || heavy.Size != 38 || heavy.Rotation != 0 {
		t.Errorf("Expected 38px A380X marker at 0°, got %+v", heavy)
	}
	if heavy.Latitude != 52.31 {
		t.Errorf("Expected latitude 52.31, got %f", heavy.Latitude)
	}
	if len(body.Legend) != 3 {
		t.Errorf("Expected 3 legend entries, got %d", len(body.Legend))
	}
}

func TestGetConnectionByID(t *testing.T) {
	s := newTestServer(t, fakeTelex(t, fixture, http.StatusOK))

	rec := get(t, s, "/api/v1/connections/cxn-b")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if body := decode(t, rec); body["flight"] != "FBW2" {
		t.Errorf("Expected flight FBW2, got %v", body["flight"])
	}

	if rec := get(t, s, "/api/v1/connections/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetPopup(t *testing.T) {
	s := newTestServer(t, fakeTelex(t, fixture, http.StatusOK))

	rec := get(t, s, "/api/v1/connections/cxn-b/popup")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected text/html, got %s", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{"FBW2", "007°", "12,500 ft", "- - - -", "F-PEGA"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected popup to contain %q", want)
		}
	}

	if rec := get(t, s, "/api/v1/connections/nope/popup"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetLegend(t *testing.T) {
	s := newTestServer(t, fakeTelex(t, nil, http.StatusOK))

	body := decode(t, get(t, s, "/api/v1/legend"))
	entries, ok := body["legend"].([]interface{})
	if !ok || len(entries) != 3 {
		t.Errorf("Expected 3 legend entries, got %v", body["legend"])
	}
}

func TestSystemStatus(t *testing.T) {
	t.Run("Upstream reachable", func(t *testing.T) {
		s := newTestServer(t, fakeTelex(t, fixture, http.StatusOK))

		body := decode(t, get(t, s, "/api/v1/system/status"))
		if body["telex"] != true {
			t.Errorf("Expected telex true, got %v", body["telex"])
		}
		if body["total"] != float64(2) {
			t.Errorf("Expected total 2, got %v", body["total"])
		}
	})

	t.Run("Upstream rate limited", func(t *testing.T) {
		s := newTestServer(t, fakeTelex(t, nil, http.StatusTooManyRequests))

		rec := get(t, s, "/api/v1/system/status")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}
		if body := decode(t, rec); body["telex"] != false {
			t.Errorf("Expected telex false, got %v", body["telex"])
		}
	})
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t, fakeTelex(t, nil, http.StatusOK))

	if rec := get(t, s, "/meta/missing.png"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing asset, got %d", rec.Code)
	}
}
