package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/remi-scorer/internal/database"
	"github.com/wfunc/remi-scorer/internal/repository"
	ws "github.com/wfunc/remi-scorer/internal/websocket"
	"go.uber.org/zap"
)

// setupRouter builds the full router over an in-memory database
func setupRouter(t *testing.T) *Router {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := repository.SetupTestDB()
	t.Cleanup(func() { repository.CleanupTestDB(db) })

	// health checks read the package-level handle
	database.DB = db
	t.Cleanup(func() { database.DB = nil })

	hub := ws.NewHub(zap.NewNop())
	go hub.Run()

	return NewRouter(db, hub, zap.NewNop())
}

// doJSON performs one JSON request against the router
func doJSON(t *testing.T, router *Router, method, path, deviceID string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if deviceID != "" {
		req.Header.Set("X-Device-ID", deviceID)
	}

	w := httptest.NewRecorder()
	router.GetEngine().ServeHTTP(w, req)

	resp := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}

	return w, resp
}

var rosterBody = map[string]string{
	"player1": "Ana", "player2": "Radu", "player3": "Ioana", "player4": "Mihai",
}

// createSeries creates a series and returns its id
func createSeries(t *testing.T, router *Router, deviceID string) string {
	t.Helper()

	w, resp := doJSON(t, router, http.MethodPost, "/api/series/create", deviceID, map[string]interface{}{
		"password": "secret",
		"players":  rosterBody,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, true, resp["success"])

	seriesID, ok := resp["sessionId"].(string)
	require.True(t, ok)
	require.Regexp(t, `^[0-9]{10}$`, seriesID)

	return seriesID
}

func TestCreateSeriesValidation(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/api/series/create", "device-1", map[string]interface{}{
		"players": rosterBody,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])

	w, _ = doJSON(t, router, http.MethodPost, "/api/series/create", "device-1", map[string]interface{}{
		"password": "secret",
		"players":  map[string]string{"player1": "Ana"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSeriesExistsEndpoint(t *testing.T) {
	router := setupRouter(t)
	seriesID := createSeries(t, router, "device-1")

	w, resp := doJSON(t, router, http.MethodGet, "/api/series/"+seriesID+"/exists", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["exists"])

	w, resp = doJSON(t, router, http.MethodGet, "/api/series/0000000000/exists", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["exists"])
}

func TestLoginWithRole(t *testing.T) {
	router := setupRouter(t)
	seriesID := createSeries(t, router, "creator")

	// creator logs in as admin
	w, resp := doJSON(t, router, http.MethodPost, "/api/series/login-with-role", "creator", map[string]string{
		"seriesId": seriesID,
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", resp["role"])
	assert.Nil(t, resp["token"])

	session, ok := resp["session"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, seriesID, session["sessionId"])

	// another device logs in as viewer
	w, resp = doJSON(t, router, http.MethodPost, "/api/series/login-with-role", "stranger", map[string]string{
		"seriesId": seriesID,
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "viewer", resp["role"])

	// wrong password answers 401
	w, _ = doJSON(t, router, http.MethodPost, "/api/series/login-with-role", "creator", map[string]string{
		"seriesId": seriesID,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecentSeriesEndpoint(t *testing.T) {
	router := setupRouter(t)
	seriesID := createSeries(t, router, "device-1")

	w, resp := doJSON(t, router, http.MethodGet, "/api/series/recent-series", "device-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	recent, ok := resp["recentSeries"].([]interface{})
	require.True(t, ok)
	require.Len(t, recent, 1)
	entry := recent[0].(map[string]interface{})
	assert.Equal(t, seriesID, entry["seriesId"])

	// without a device the endpoint refuses
	w, _ = doJSON(t, router, http.MethodGet, "/api/series/recent-series", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFullScoringFlow(t *testing.T) {
	router := setupRouter(t)
	seriesID := createSeries(t, router, "creator")

	// only the creator can start a session
	w, _ := doJSON(t, router, http.MethodPost, "/api/series/"+seriesID+"/sessions", "stranger", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := doJSON(t, router, http.MethodPost, "/api/series/"+seriesID+"/sessions", "creator", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	session := resp["session"].(map[string]interface{})
	sessionID := session["session_id"].(string)
	assert.Equal(t, float64(1), session["sequence_number"])

	// a second active session conflicts
	w, _ = doJSON(t, router, http.MethodPost, "/api/series/"+seriesID+"/sessions", "creator", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// two rounds of scores
	w, resp = doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/scores", "creator", map[string]interface{}{
		"scores": map[string]int{"player1": 25, "player2": -10, "player3": 0, "player4": 5},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["currentRound"])

	w, resp = doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/scores", "creator", map[string]interface{}{
		"scores":         map[string]int{"player1": 5, "player2": 30, "player3": 0, "player4": 0},
		"atuPlayerIndex": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), resp["currentRound"])

	finals := resp["finalScores"].(map[string]interface{})
	assert.Equal(t, float64(30), finals["player1"])
	assert.Equal(t, float64(20), finals["player2"])

	// amend the newest round
	w, resp = doJSON(t, router, http.MethodPut, "/api/sessions/"+sessionID+"/scores/last", "creator", map[string]interface{}{
		"scores": map[string]int{"player1": 10, "player2": 30, "player3": 0, "player4": 0},
	})
	require.Equal(t, http.StatusOK, w.Code)
	finals = resp["finalScores"].(map[string]interface{})
	assert.Equal(t, float64(35), finals["player1"])

	// strangers cannot score
	w, _ = doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/scores", "stranger", map[string]interface{}{
		"scores": map[string]int{"player1": 1},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// end the session, twice conflicts
	w, _ = doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/end", "creator", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/end", "creator", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// ended sessions refuse further scores
	w, _ = doJSON(t, router, http.MethodPost, "/api/sessions/"+sessionID+"/scores", "creator", map[string]interface{}{
		"scores": map[string]int{"player1": 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// session history lists the ended session
	w, resp = doJSON(t, router, http.MethodGet, "/api/series/"+seriesID+"/sessions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := resp["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	assert.Equal(t, "ended", sessions[0].(map[string]interface{})["status"])

	// a fresh session continues the sequence
	w, resp = doJSON(t, router, http.MethodPost, "/api/series/"+seriesID+"/sessions", "creator", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	session = resp["session"].(map[string]interface{})
	assert.Equal(t, float64(2), session["sequence_number"])
}

func TestUpdateSessionEndpoint(t *testing.T) {
	router := setupRouter(t)
	seriesID := createSeries(t, router, "creator")

	w, resp := doJSON(t, router, http.MethodPost, "/api/series/"+seriesID+"/sessions", "creator", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := resp["session"].(map[string]interface{})["session_id"].(string)

	path := fmt.Sprintf("/api/series/%s/sessions/%s", seriesID, sessionID)

	// rename a player
	renamed := map[string]string{
		"player1": "Andrei", "player2": "Radu", "player3": "Ioana", "player4": "Mihai",
	}
	w, resp = doJSON(t, router, http.MethodPut, path, "creator", map[string]interface{}{
		"players": renamed,
	})
	require.Equal(t, http.StatusOK, w.Code)
	players := resp["session"].(map[string]interface{})["players"].(map[string]interface{})
	assert.Equal(t, "Andrei", players["player1"])

	// non-creator is refused
	w, _ = doJSON(t, router, http.MethodPut, path, "stranger", map[string]interface{}{
		"players": renamed,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// end through the patch endpoint
	w, resp = doJSON(t, router, http.MethodPut, path, "creator", map[string]interface{}{
		"status": "ended",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ended", resp["session"].(map[string]interface{})["status"])

	// reopening is rejected
	w, _ = doJSON(t, router, http.MethodPut, path, "creator", map[string]interface{}{
		"status": "active",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFoundRoutes(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/api/series/0000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, resp["success"])

	w, _ = doJSON(t, router, http.MethodGet, "/api/sessions/0000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", resp["status"])
}
