package linelist

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epidash/internal/dashboard"
)

type recordingHub struct {
	events []dashboard.SessionEvent
}

func (h *recordingHub) Broadcast(ev dashboard.SessionEvent) { h.events = append(h.events, ev) }

type recordingAlerter struct {
	datasetIDs []string
	rowCounts  []int
}

func (a *recordingAlerter) BroadcastCasesImported(datasetID string, rowCount int) {
	a.datasetIDs = append(a.datasetIDs, datasetID)
	a.rowCounts = append(a.rowCounts, rowCount)
}

func datasetRouter(t *testing.T, hub Broadcaster, alerts Alerter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewRepo(testDB(t)), NewLoader(), hub, alerts)
	router := gin.New()
	h.RegisterRoutes(router.Group("/datasets"))
	h.RegisterProtectedRoutes(router.Group("/datasets"))
	return router
}

func TestImportEndpoint(t *testing.T) {
	csvSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer csvSrv.Close()

	hub := &recordingHub{}
	alerts := &recordingAlerter{}
	router := datasetRouter(t, hub, alerts)

	body := `{"name":"measles 2024","source":"` + csvSrv.URL + `/cases.csv"}`
	req := httptest.NewRequest(http.MethodPost, "/datasets/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "measles 2024", payload["name"])
	assert.Equal(t, float64(3), payload["row_count"])

	// import fans out to viewers and UDP watchers
	require.Len(t, hub.events, 1)
	assert.Equal(t, dashboard.EventDatasetImported, hub.events[0].Type)
	assert.Equal(t, payload["id"], hub.events[0].Dataset)
	assert.Equal(t, 3, hub.events[0].RowCount)
	require.Len(t, alerts.datasetIDs, 1)
	assert.Equal(t, payload["id"], alerts.datasetIDs[0])
	assert.Equal(t, 3, alerts.rowCounts[0])

	// the dataset is now listed and pageable
	req = httptest.NewRequest(http.MethodGet, "/datasets", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var listing map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, float64(1), listing["total"])

	id, _ := payload["id"].(string)
	req = httptest.NewRequest(http.MethodGet, "/datasets/"+id+"/cases?limit=2", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var cases map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cases))
	assert.Equal(t, float64(3), cases["total"])
	assert.Len(t, cases["rows"], 2)
}

func TestImportEndpointFetchFailure(t *testing.T) {
	csvSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer csvSrv.Close()

	alerts := &recordingAlerter{}
	router := datasetRouter(t, nil, alerts)

	body := `{"name":"broken","source":"` + csvSrv.URL + `/cases.csv"}`
	req := httptest.NewRequest(http.MethodPost, "/datasets/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, alerts.datasetIDs, "failed imports must not alert")
}

func TestImportEndpointValidation(t *testing.T) {
	router := datasetRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/datasets/import", strings.NewReader(`{"name":""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	router := datasetRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/datasets/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
