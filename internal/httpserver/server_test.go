package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptkeep/promptkeep/internal/conf"
	"github.com/promptkeep/promptkeep/internal/datastore"
	"github.com/promptkeep/promptkeep/internal/gallery"
	"github.com/promptkeep/promptkeep/internal/generation"
)

// newTestServer stands up the API over a temp SQLite store and seeds it
// with a few images backed by real files.
func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	dataPath := t.TempDir()
	settings := &conf.Settings{}
	settings.Ingest.DataPath = dataPath
	settings.Search.DefaultPageSize = 20
	settings.Search.MaxPageSize = 100
	settings.Search.DefaultWindowHours = 72
	settings.Stats.GroupByLimit = 2000
	settings.Stats.CacheTTLSeconds = 60
	settings.WebServer.Port = "8080"
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store := datastore.New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return New(settings, gallery.New(settings, store)), dataPath
}

func seedImage(t *testing.T, srv *Server, dataPath, name, model string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dataPath, name), []byte("png"), 0o644))
	event := &generation.Event{
		SavePath:     name,
		Parameters:   "a cat\nSteps: 20, Model: " + model + ", Seed: 42",
		JobStartTime: time.Now(),
		IsTxt2Img:    true,
	}
	require.NoError(t, srv.gallery.Ingest(context.Background(), event))
}

func doRequest(srv *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	return rec
}

func TestSearchImagesEndpoint(t *testing.T) {
	t.Parallel()
	srv, dataPath := newTestServer(t)
	seedImage(t, srv, dataPath, "a.png", "dreamshaper_8")
	seedImage(t, srv, dataPath, "b.png", "sdxl_base")

	rec := doRequest(srv, http.MethodGet, "/api/v1/images?models=dreamshaper_8")
	require.Equal(t, http.StatusOK, rec.Code)

	var result gallery.PageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(1), result.TotalCount)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "a.png", result.Items[0].ImagePath)
}

func TestSearchImagesSeedRange(t *testing.T) {
	t.Parallel()
	srv, dataPath := newTestServer(t)
	seedImage(t, srv, dataPath, "a.png", "dreamshaper_8")

	// Seeded images carry seed 42.
	rec := doRequest(srv, http.MethodGet, "/api/v1/images?seed_min=1&seed_max=100")
	require.Equal(t, http.StatusOK, rec.Code)
	var result gallery.PageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(1), result.TotalCount)

	rec = doRequest(srv, http.MethodGet, "/api/v1/images?seed_min=100")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(0), result.TotalCount)
}

func TestSearchImagesBadRange(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/v1/images?width_min=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid width range", resp.Message)
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestDeleteImageEndpoint(t *testing.T) {
	t.Parallel()
	srv, dataPath := newTestServer(t)
	seedImage(t, srv, dataPath, "doomed.png", "dreamshaper_8")

	rec := doRequest(srv, http.MethodGet, "/api/v1/images")
	require.Equal(t, http.StatusOK, rec.Code)
	var result gallery.PageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Items, 1)

	rec = doRequest(srv, http.MethodDelete, "/api/v1/images/"+result.Items[0].ID)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := os.Stat(filepath.Join(dataPath, "doomed.png"))
	assert.True(t, os.IsNotExist(err))

	rec = doRequest(srv, http.MethodDelete, "/api/v1/images/"+result.Items[0].ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsTotalsEndpoint(t *testing.T) {
	t.Parallel()
	srv, dataPath := newTestServer(t)
	seedImage(t, srv, dataPath, "a.png", "dreamshaper_8")

	rec := doRequest(srv, http.MethodGet, "/api/v1/stats/totals")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats datastore.TotalStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Total.Count)
	assert.Equal(t, int64(1), stats.Total.Txt2ImgCount)
}

func TestStatsGroupByEndpoint(t *testing.T) {
	t.Parallel()
	srv, dataPath := newTestServer(t)
	seedImage(t, srv, dataPath, "a.png", "dreamshaper_8")
	seedImage(t, srv, dataPath, "b.png", "dreamshaper_8")

	rec := doRequest(srv, http.MethodGet, "/api/v1/stats/groupby/Model")
	require.Equal(t, http.StatusOK, rec.Code)

	var buckets []datastore.Bucket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buckets))
	require.Len(t, buckets, 1)
	assert.Equal(t, datastore.Bucket{Key: "dreamshaper_8", Count: 2}, buckets[0])

	rec = doRequest(srv, http.MethodGet, "/api/v1/stats/groupby/ImagePath")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFieldChoicesEndpoint(t *testing.T) {
	t.Parallel()
	srv, dataPath := newTestServer(t)
	seedImage(t, srv, dataPath, "a.png", "zephyr")
	seedImage(t, srv, dataPath, "b.png", "anything_v5")

	rec := doRequest(srv, http.MethodGet, "/api/v1/choices/Model")
	require.Equal(t, http.StatusOK, rec.Code)

	var choices []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &choices))
	assert.Equal(t, []string{"anything_v5", "zephyr"}, choices)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}
