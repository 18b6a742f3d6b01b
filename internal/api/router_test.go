package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"socialnet/internal/codec"
	"socialnet/internal/commandlog"
	"socialnet/internal/metrics"
	"socialnet/internal/services"
)

func setupRouter(t *testing.T) (*gin.Engine, *services.NetworkService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	svc := services.NewNetworkService(services.WithMetrics(metrics.New(reg)))
	router := NewRouter(svc, Options{
		ExportPath: filepath.Join(t.TempDir(), "network.txt"),
		ExportMode: commandlog.ExportSnapshot,
		Gatherer:   reg,
	})
	return router, svc
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func seed(t *testing.T, svc *services.NetworkService) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []string{"sam", "chris", "dana", "erin"} {
		require.NoError(t, svc.AddUser(ctx, u))
	}
	require.NoError(t, svc.AddFriend(ctx, "sam", "chris"))
	require.NoError(t, svc.AddFriend(ctx, "chris", "dana"))
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "GET", "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	router, _ := setupRouter(t)

	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestAddUserEndpoint(t *testing.T) {
	router, svc := setupRouter(t)

	w := doRequest(router, "POST", "/api/users", `{"username":"sam"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, svc.HasUser("sam"))

	w = doRequest(router, "POST", "/api/users", `{"username":"sam"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode(t, w)["kind"])
}

func TestAddUserEndpoint_InvalidRequest(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing username", `{}`},
		{"illegal characters", `{"username":"sam smith"}`},
		{"not json", `username=sam`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, "POST", "/api/users", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation", decode(t, w)["kind"])
		})
	}
}

func TestRemoveUserEndpoint(t *testing.T) {
	router, svc := setupRouter(t)
	seed(t, svc)

	w := doRequest(router, "DELETE", "/api/users/chris", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, svc.HasUser("chris"))

	w = doRequest(router, "DELETE", "/api/users/chris", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["kind"])
}

func TestFriendsEndpoint(t *testing.T) {
	router, svc := setupRouter(t)
	seed(t, svc)

	w := doRequest(router, "GET", "/api/users/chris/friends", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{"sam", "dana"}, body["friends"])
	assert.Equal(t, float64(2), body["degree"])

	w = doRequest(router, "GET", "/api/users/erin/friends", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, []interface{}{}, body["friends"])
	assert.Equal(t, float64(0), body["degree"])

	w = doRequest(router, "GET", "/api/users/ghost/friends", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComponentEndpoint(t *testing.T) {
	router, svc := setupRouter(t)
	seed(t, svc)

	w := doRequest(router, "GET", "/api/users/dana/component", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"dana", "chris", "sam"}, decode(t, w)["component"])

	w = doRequest(router, "GET", "/api/users/erin/component", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"erin"}, decode(t, w)["component"])

	w = doRequest(router, "GET", "/api/users/ghost/component", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFriendshipEndpoints(t *testing.T) {
	router, svc := setupRouter(t)
	seed(t, svc)

	w := doRequest(router, "POST", "/api/friendships", `{"user1":"dana","user2":"erin"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, "POST", "/api/friendships", `{"user1":"dana","user2":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, "POST", "/api/friendships", `{"user1":"dana","user2":"dana"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, "POST", "/api/friendships", `{"user1":"dana"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, "DELETE", "/api/friendships", `{"user1":"erin","user2":"dana"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	friends, err := svc.FriendsOf("dana")
	require.NoError(t, err)
	assert.Equal(t, []string{"chris"}, friends)
}

func TestQueryEndpoints(t *testing.T) {
	router, svc := setupRouter(t)
	seed(t, svc)

	w := doRequest(router, "GET", "/api/mutual?user1=sam&user2=dana", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"chris"}, decode(t, w)["mutual"])

	w = doRequest(router, "GET", "/api/path?from=sam&to=dana", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{"sam", "chris", "dana"}, body["path"])
	assert.Equal(t, true, body["connected"])

	w = doRequest(router, "GET", "/api/path?from=sam&to=erin", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, []interface{}{}, body["path"])
	assert.Equal(t, false, body["connected"])

	w = doRequest(router, "GET", "/api/path?from=sam&to=ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, "GET", "/api/components", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = doRequest(router, "GET", "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, float64(4), body["users"])
	assert.Equal(t, float64(2), body["friendships"])
}

func TestCentralEndpoints(t *testing.T) {
	router, svc := setupRouter(t)
	seed(t, svc)

	w := doRequest(router, "PUT", "/api/central", `{"username":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, "PUT", "/api/central", `{"username":"dana"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, "GET", "/api/central", "")
	assert.Equal(t, "dana", decode(t, w)["username"])
}

func TestLogEndpoints(t *testing.T) {
	router, svc := setupRouter(t)

	dir := t.TempDir()
	source := filepath.Join(dir, "source.txt")
	require.NoError(t, os.WriteFile(source, []byte("a dana\na erin\na dana erin\nr dana erin\n"), 0o644))

	w := doRequest(router, "POST", "/api/log/load", `{"path":"`+source+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), decode(t, w)["applied"])
	assert.Equal(t, 0, svc.Stats().Friendships)

	w = doRequest(router, "GET", "/api/log", "")
	assert.Equal(t, float64(4), decode(t, w)["count"])

	target := filepath.Join(dir, "out.txt")
	w = doRequest(router, "POST", "/api/log/export", `{"path":"`+target+`","mode":"drain"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), decode(t, w)["commands"])
	assert.Empty(t, svc.LogLines())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "a dana\na erin\na dana erin\nr dana erin\n", string(data))

	w = doRequest(router, "POST", "/api/log/export", `{"mode":"append"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, "POST", "/api/log/export", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoadEndpoint_Errors(t *testing.T) {
	router, svc := setupRouter(t)

	w := doRequest(router, "POST", "/api/log/load", `{"path":"`+filepath.Join(t.TempDir(), "absent.txt")+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	bad := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("a dana\na erin!\n"), 0o644))

	w = doRequest(router, "POST", "/api/log/load", `{"path":"`+bad+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "command_log", decode(t, w)["kind"])
	assert.Equal(t, []string{"dana"}, svc.Users())
}

func TestSnapshotEndpoint(t *testing.T) {
	router, svc := setupRouter(t)
	seed(t, svc)

	w := doRequest(router, "GET", "/api/snapshot", "")
	require.Equal(t, http.StatusOK, w.Code)
	var fromJSON codec.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fromJSON))
	assert.Equal(t, []string{"sam", "chris", "dana", "erin"}, fromJSON.Users)

	w = doRequest(router, "GET", "/api/snapshot?format=yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	var fromYAML codec.Snapshot
	require.NoError(t, yaml.Unmarshal(w.Body.Bytes(), &fromYAML))
	assert.Equal(t, fromJSON, fromYAML)

	w = doRequest(router, "GET", "/api/snapshot?format=msgpack", "")
	require.Equal(t, http.StatusOK, w.Code)
	var fromMsgpack codec.Snapshot
	require.NoError(t, msgpack.Unmarshal(w.Body.Bytes(), &fromMsgpack))
	assert.Equal(t, fromJSON, fromMsgpack)

	w = doRequest(router, "GET", "/api/snapshot?format=log", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "a sam\n"))

	w = doRequest(router, "GET", "/api/snapshot?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestoreSnapshotEndpoint(t *testing.T) {
	router, svc := setupRouter(t)
	seed(t, svc)

	w := doRequest(router, "PUT", "/api/snapshot", `{"users":["x","y"],"friendships":[{"a":"x","b":"y"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"x", "y"}, svc.Users())

	w = doRequest(router, "PUT", "/api/snapshot", `{"users":["bad name"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"x", "y"}, svc.Users())
}

func TestClearEndpoint(t *testing.T) {
	router, svc := setupRouter(t)
	seed(t, svc)

	w := doRequest(router, "DELETE", "/api/network", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, svc.Users())
}

func TestMetricsEndpoint(t *testing.T) {
	router, svc := setupRouter(t)
	seed(t, svc)

	w := doRequest(router, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `socialnet_mutations_total{op="add_user",result="ok"} 4`)
	assert.Contains(t, w.Body.String(), "socialnet_users 4")
}

func TestCORSPreflight(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, "OPTIONS", "/api/users", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
