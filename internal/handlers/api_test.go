// internal/handlers/api_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/qspy/internal/game"
	"github.com/jason-s-yu/qspy/internal/protocol"
	"github.com/jason-s-yu/qspy/internal/version"
	"github.com/jason-s-yu/qspy/internal/words"
)

func testDirectory(t *testing.T) *game.Directory {
	t.Helper()
	packs := []*words.Pack{{
		Name: "Test",
		Pairs: []words.InfoPair{
			{Location: "Beach", Roles: []string{"Lifeguard"}},
			{Location: "Casino", Roles: []string{"Dealer"}},
		},
	}}
	dir, err := game.NewDirectory(logrus.New(), packs, nil)
	require.NoError(t, err)
	return dir
}

func decodeRoomResponse(t *testing.T, rec *httptest.ResponseRecorder) roomResponse {
	t.Helper()
	var resp roomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestVersionMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := VersionMiddleware(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/exists", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/exists", nil)
	req.Header.Set(VersionHeader, "r0.0.0")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/exists", nil)
	req.Header.Set(VersionHeader, version.Current())
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExistsHandler(t *testing.T) {
	dir := testDirectory(t)
	s, err := dir.CreateRoom("Game Night", "")
	require.NoError(t, err)
	t.Cleanup(s.Cancel)
	handler := ExistsHandler(dir)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/exists", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/exists?roomID=zzzzzzzz", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/exists?roomID="+s.ID(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoomHandlerCreate(t *testing.T) {
	dir := testDirectory(t)
	handler := RoomHandler(logrus.New(), dir)

	rec := postJSON(handler, "/api/room", `{"nickname":"sam","roomName":"Game Night","roomPass":"secret","create":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeRoomResponse(t, rec)
	assert.NotEmpty(t, resp.RoomID)
	s := dir.FindRoomByID(resp.RoomID)
	require.NotNil(t, s)
	t.Cleanup(s.Cancel)

	rec = postJSON(handler, "/api/room", `{"nickname":"sam","roomName":"Game Night","roomPass":"","create":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Room already exists.", decodeRoomResponse(t, rec).Error)
}

func TestRoomHandlerValidation(t *testing.T) {
	dir := testDirectory(t)
	handler := RoomHandler(logrus.New(), dir)

	tests := []struct {
		name    string
		body    string
		mistake int
	}{
		{"empty nickname", `{"nickname":"","roomName":"Room","create":true}`, protocol.MistakeNickname},
		{"long nickname", `{"nickname":"ridiculously long nickname","roomName":"Room","create":true}`, protocol.MistakeNickname},
		{"bad room name", `{"nickname":"sam","roomName":"no!way","create":true}`, protocol.MistakeRoomName},
		{"long room name", `{"nickname":"sam","roomName":"this room name is much too long","create":true}`, protocol.MistakeRoomName},
		{"long password", `{"nickname":"sam","roomName":"Room","roomPass":"longer than twenty characters","create":true}`, protocol.MistakePassword},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(handler, "/api/room", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeRoomResponse(t, rec)
			require.NotNil(t, resp.Mistake)
			assert.Equal(t, tc.mistake, *resp.Mistake)
		})
	}

	// Malformed body and wrong method are flat rejections.
	rec := postJSON(handler, "/api/room", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/room", nil)
	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRoomHandlerJoin(t *testing.T) {
	dir := testDirectory(t)
	handler := RoomHandler(logrus.New(), dir)

	rec := postJSON(handler, "/api/room", `{"nickname":"host","roomName":"Game Night","roomPass":"secret","create":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	roomID := decodeRoomResponse(t, rec).RoomID
	s := dir.FindRoomByID(roomID)
	require.NotNil(t, s)
	t.Cleanup(s.Cancel)

	rec = postJSON(handler, "/api/room", `{"nickname":"guest","roomName":"Game Night","roomPass":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, roomID, decodeRoomResponse(t, rec).RoomID)

	// Wrong password and unknown name collapse into one lookup error so
	// callers cannot probe which rooms exist.
	rec = postJSON(handler, "/api/room", `{"nickname":"guest","roomName":"Game Night","roomPass":"wrong"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeRoomResponse(t, rec)
	require.NotNil(t, resp.Mistake)
	assert.Equal(t, protocol.MistakeLookup, *resp.Mistake)

	rec = postJSON(handler, "/api/room", `{"nickname":"guest","roomName":"No Such Room","roomPass":"secret"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJoinHandler(t *testing.T) {
	dir := testDirectory(t)
	s, err := dir.CreateRoom("Game Night", "")
	require.NoError(t, err)
	t.Cleanup(s.Cancel)
	handler := JoinHandler(dir)

	rec := postJSON(handler, "/api/join", `{"nickname":"guest","roomID":"`+s.ID()+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(handler, "/api/join", `{"nickname":"guest","roomID":"zzzzzzzz"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Room not found.", decodeRoomResponse(t, rec).Error)

	rec = postJSON(handler, "/api/join", `{"nickname":"","roomID":"`+s.ID()+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeRoomResponse(t, rec)
	require.NotNil(t, resp.Mistake)
	assert.Equal(t, protocol.MistakeNickname, *resp.Mistake)
}

func TestStatsHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	StatsHandler()(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, stats, "clients")
	assert.Contains(t, stats, "rooms")
}

func TestRoomWSHandlerRejectsBadQuery(t *testing.T) {
	dir := testDirectory(t)
	handler := RoomWSHandler(logrus.New(), dir)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ws?roomID=abc&nickname=", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
