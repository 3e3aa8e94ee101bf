package api

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Mosaic/internal/collector"
	"github.com/shaiso/Mosaic/internal/domain"
	"github.com/shaiso/Mosaic/internal/stream"
	"github.com/shaiso/Mosaic/internal/telemetry"
)

func newTestServer(t *testing.T, withExporter bool) (*httptest.Server, *collector.Collector, string) {
	t.Helper()

	c, err := collector.New(collector.Config{
		Broker:       stream.NewMemory(stream.MemoryOptions{}),
		CanvasWidth:  8,
		CanvasHeight: 6,
		Logger:       telemetry.Discard(),
	})
	require.NoError(t, err)

	cfg := Config{Collector: c, Logger: telemetry.Discard()}
	path := filepath.Join(t.TempDir(), "out.png")
	if withExporter {
		cfg.Exporter = collector.NewExporter(c.Raster(), path, telemetry.Discard())
	}

	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, c, path
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "mosaic_collector_results_applied_total")
}

func TestGetRaster(t *testing.T) {
	srv, c, _ := newTestServer(t, false)
	c.Raster().Paint(image.Rect(0, 0, 8, 6), domain.Color{B: 255})

	resp, err := http.Get(srv.URL + "/api/v1/raster.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
	_, _, b, _ := img.At(3, 3).RGBA()
	assert.Equal(t, uint32(0xffff), b)
}

func TestGetStats(t *testing.T) {
	srv, c, _ := newTestServer(t, false)

	msg := domain.ResultMessage{
		Region: domain.Region{
			Quarter:      domain.QuarterTopLeft,
			BottomRight:  domain.Point{X: 4, Y: 3},
			CanvasWidth:  8,
			CanvasHeight: 6,
		},
		WorkerID: "worker-test",
	}
	require.NoError(t, c.Apply(stream.Entry{ID: "1-0", Fields: msg.Fields()}))

	resp, err := http.Get(srv.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Data collector.Stats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Data.Applied)
	assert.Equal(t, 1, body.Data.Painted)
	assert.Equal(t, 8, body.Data.Width)
	assert.Equal(t, 6, body.Data.Height)
}

func TestExport(t *testing.T) {
	srv, _, path := newTestServer(t, true)

	resp, err := http.Post(srv.URL+"/api/v1/export", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data ExportResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, path, body.Data.Path)
	assert.FileExists(t, path)
}

func TestExport_NotConfigured(t *testing.T) {
	srv, _, _ := newTestServer(t, false)

	resp, err := http.Post(srv.URL+"/api/v1/export", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, ErrCodeUnavailable, body.Error.Code)
}

func TestExport_WrongMethod(t *testing.T) {
	srv, _, _ := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/api/v1/export")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestRecovery(t *testing.T) {
	h := Recovery(telemetry.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogging_CapturesStatus(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rw.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, rw.status)
}

func TestServeListener_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := http.NewServeMux()
	RegisterOps(mux, telemetry.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, ln, mux, telemetry.Discard()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestInstrument_CountsRequests(t *testing.T) {
	srv, _, _ := newTestServer(t, false)

	for range 2 {
		resp, err := http.Get(srv.URL + "/api/v1/stats")
		require.NoError(t, err)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), `mosaic_http_requests_total{code="200",route="GET /api/v1/stats"}`)
}

func TestRecovery_AfterHeaderWritten(t *testing.T) {
	h := Recovery(telemetry.Discard())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestResponseWriter_CountsBytes(t *testing.T) {
	rw := wrap(httptest.NewRecorder())
	assert.Same(t, rw, wrap(rw))

	_, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, rw.written)
	assert.True(t, rw.wroteHeader)

	rw.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusOK, rw.status, "status after body is ignored")
}
