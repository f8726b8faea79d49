package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/voxelmap/internal/render"
	"github.com/annel0/voxelmap/internal/vec"
	"github.com/annel0/voxelmap/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticMap struct{ snap world.MapSnapshot }

func (s staticMap) Snapshot() world.MapSnapshot { return s.snap }

type staticRender struct{ snap render.Snapshot }

func (s staticRender) Snapshot() render.Snapshot { return s.snap }

func newTestServer(withRender bool) *DebugServer {
	cfg := Config{
		Map: staticMap{snap: world.MapSnapshot{
			Tick: 7,
			Chunks: []world.ChunkInfo{
				{Key: vec.Vec2{X: 0, Y: 0}, Blocks: 12, CameraAccess: 1},
				{Key: vec.Vec2{X: 1, Y: 0}, Modified: true},
			},
			Pending:   3,
			Generated: 2,
		}},
		Registry: prometheus.NewRegistry(),
	}
	if withRender {
		cfg.Render = staticRender{snap: render.Snapshot{Tick: 7, Chunks: []vec.Vec2{{X: 0, Y: 0}}, Rebuilds: 1}}
	}
	return NewDebugServer(cfg)
}

func get(t *testing.T, ds *DebugServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ds.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(false), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 7.0, body["tick"])
}

func TestChunksReturnsSnapshot(t *testing.T) {
	rec := get(t, newTestServer(false), "/api/chunks")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    []world.ChunkInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, vec.Vec2{X: 1, Y: 0}, resp.Data[1].Key)
	assert.True(t, resp.Data[1].Modified)
	assert.Equal(t, 12, resp.Data[0].Blocks)
}

func TestRenderEndpoint(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, newTestServer(false), "/api/render").Code)

	rec := get(t, newTestServer(true), "/api/render")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data render.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Data.Rebuilds)
}

func TestStats(t *testing.T) {
	rec := get(t, newTestServer(true), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data map[string]map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2.0, resp.Data["map"]["resident"])
	assert.Equal(t, 3.0, resp.Data["map"]["pending"])
	assert.Equal(t, 1.0, resp.Data["render"]["chunks"])
	assert.Contains(t, resp.Data["server"], "uptime")
}

func TestMetricsEndpoint(t *testing.T) {
	ds := newTestServer(false)
	get(t, ds, "/health")

	rec := get(t, ds, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "voxelmap_api_http_request_duration_seconds")
}
