package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantregistry/database"
	"plantregistry/reconcile"
	"plantregistry/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRunner echoes the submitted sources back as an already-resolved
// run so handler tests need no oracle.
type stubRunner struct {
	err error
}

func (r *stubRunner) Run(_ context.Context, sources, _ []registry.PlantRecord) (*reconcile.RunResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	result := &reconcile.RunResult{
		RunID:  "run-test",
		States: map[string]reconcile.State{},
		Review: reconcile.NewReviewQueue(),
	}
	for _, s := range sources {
		s.MatchMethod = registry.MatchExact
		s.MatchRef = "t-" + s.ID
		result.Records = append(result.Records, s)
		result.States[s.ID] = reconcile.StateMatchedExact
		result.Stats.Exact++
		result.Stats.Total++
	}
	return result, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(&stubRunner{}, store).Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateRunAndFetch(t *testing.T) {
	router := newTestRouter(t)

	body := CreateRunRequest{
		Sources: []registry.PlantRecord{
			{ID: "s1", Name: "Central Sopladora", Technology: registry.TechHydro},
		},
		Targets: []registry.PlantRecord{
			{ID: "t1", Name: "Central Sopladora", Technology: registry.TechHydro},
		},
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/runs", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created CreateRunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "run-test", created.RunID)

	// The run is immediately readable.
	w = doJSON(t, router, http.MethodGet, "/api/v1/runs/run-test", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/runs/run-test/records", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records struct {
		Records []registry.PlantRecord `json:"records"`
		Total   int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Equal(t, 1, records.Total)
	assert.Equal(t, "s1", records.Records[0].ID)
	assert.Equal(t, registry.MatchExact, records.Records[0].MatchMethod)

	w = doJSON(t, router, http.MethodGet, "/api/v1/runs/run-test/review", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateRunEmptySourcesRejected(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/runs", CreateRunRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRunMalformedBodyRejected(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID, "error response carries the request id")
}

func TestGetRunNotFound(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/api/v1/runs/missing",
		"/api/v1/runs/missing/records",
		"/api/v1/runs/missing/review",
	} {
		w := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestListRuns(t *testing.T) {
	router := newTestRouter(t)

	body := CreateRunRequest{
		Sources: []registry.PlantRecord{{ID: "s1", Name: "Sopladora", Technology: registry.TechHydro}},
	}
	w := doJSON(t, router, http.MethodPost, "/api/v1/runs", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	w = doJSON(t, router, http.MethodGet, "/api/v1/runs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestIDReused(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))
}
