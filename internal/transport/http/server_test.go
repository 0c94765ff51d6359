package http

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filiale-console/internal/bootstrap"
	"filiale-console/internal/config"
	"filiale-console/internal/transport/http/middleware"
	"filiale-console/internal/transport/http/response"
)

var fixtures = map[string]string{
	"/filialle/data.json": `{"filialles":[
		{"id":"f1","name":"Paris","email":"paris@example.com","status":"active"},
		{"id":"f2","name":"Lyon","email":"lyon@example.com","status":"active"}]}`,
	"/utilisateurs/data.json": `{"utilisateurs":[
		{"id":"u1","filialeId":"f1","nom":"Martin","prenom":"Alice","email":"alice@example.com","role":"Manager","status":"active"}]}`,
	"/assistants/data.json": `{"assistants":[
		{"id":"a1","filialeId":"f1","name":"Max","type":"Support","status":"active","successRate":"90%"}]}`,
	"/conversations/data.json": `{"conversations":[]}`,
	"/documents/data.json":     `{"documents":[{"id":"d1","name":"Guide","filialeId":"f1"}]}`,
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
	device string
}

func (c *client) do(method, path string, body interface{}) (int, envelope) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.device != "" {
		req.Header.Set(middleware.HeaderDeviceID, c.device)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (c *client) login(username, password string) {
	c.t.Helper()
	status, env := c.do(nethttp.MethodPost, "/api/v1/auth/login", gin.H{"username": username, "password": password})
	require.Equal(c.t, nethttp.StatusOK, status, env.Message)

	var data struct {
		Token    string `json:"token"`
		DeviceID string `json:"deviceId"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &data))
	c.token = data.Token
	c.device = data.DeviceID
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	mux := nethttp.NewServeMux()
	for path, body := range fixtures {
		body := body
		mux.HandleFunc(path, func(w nethttp.ResponseWriter, r *nethttp.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	data := httptest.NewServer(mux)
	t.Cleanup(data.Close)

	cfg := &config.Config{
		App:   config.AppConfig{Name: "filiale-console", Env: "test", GinMode: gin.TestMode},
		Auth:  config.AuthConfig{JWTSecret: "test-secret", JWTExpireMinute: 60, AdminUsername: "admin", AdminSecret: "admin", UserCode: "000000"},
		Data:  config.DataConfig{BaseURL: data.URL, FetchTimeoutSec: 2},
		Store: config.StoreConfig{Driver: "memory", TTLHours: 1},
		Chat:  config.ChatConfig{ReplyDelayMillis: 10, TitleMaxRunes: 40, SessionTTLMinutes: 5},
	}
	app, err := bootstrap.Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return NewRouter(app)
}

func decisionOf(t *testing.T, env envelope) (string, string) {
	t.Helper()
	var data struct {
		Decision struct {
			Outcome  string `json:"outcome"`
			Location string `json:"location"`
		} `json:"decision"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Decision.Outcome, data.Decision.Location
}

func TestNavigate(t *testing.T) {
	router := newTestRouter(t)

	anon := &client{t: t, router: router}
	_, env := anon.do(nethttp.MethodGet, "/api/v1/navigate?path=/utilisateurs", nil)
	outcome, location := decisionOf(t, env)
	assert.Equal(t, "redirect", outcome)
	assert.Equal(t, "/login", location)

	_, env = anon.do(nethttp.MethodGet, "/api/v1/navigate?path=/login", nil)
	outcome, _ = decisionOf(t, env)
	assert.Equal(t, "render", outcome)

	status, _ := anon.do(nethttp.MethodGet, "/api/v1/navigate?path=/nowhere", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)

	user := &client{t: t, router: router}
	user.login("ALICE@example.com", "000000")
	_, env = user.do(nethttp.MethodGet, "/api/v1/navigate?path=/utilisateurs", nil)
	outcome, location = decisionOf(t, env)
	assert.Equal(t, "redirect", outcome)
	assert.Equal(t, "/acceder-assistant", location)

	_, env = user.do(nethttp.MethodGet, "/api/v1/navigate?path=/login", nil)
	_, location = decisionOf(t, env)
	assert.Equal(t, "/acceder-assistant", location)

	admin := &client{t: t, router: router}
	admin.login("admin", "admin")
	_, env = admin.do(nethttp.MethodGet, "/api/v1/navigate?path=/utilisateurs/", nil)
	outcome, _ = decisionOf(t, env)
	assert.Equal(t, "render", outcome)
}

func TestLoginFailure(t *testing.T) {
	router := newTestRouter(t)
	anon := &client{t: t, router: router}

	status, env := anon.do(nethttp.MethodPost, "/api/v1/auth/login", gin.H{"username": "admin", "password": "wrong"})
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, response.CodeInvalidCredentials, env.Code)

	status, env = anon.do(nethttp.MethodPost, "/api/v1/auth/login", gin.H{"username": "nobody@example.com", "password": "000000"})
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, response.CodeInvalidCredentials, env.Code)
}

func TestAdminScreens(t *testing.T) {
	router := newTestRouter(t)
	admin := &client{t: t, router: router}
	admin.login("admin", "admin")

	status, env := admin.do(nethttp.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, nethttp.StatusOK, status)
	var dash struct {
		Users struct {
			Total int `json:"total"`
		} `json:"utilisateurs"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.Equal(t, 1, dash.Users.Total)

	status, _ = admin.do(nethttp.MethodPut, "/api/v1/selection", gin.H{"filialeId": "f2"})
	require.Equal(t, nethttp.StatusOK, status)

	_, env = admin.do(nethttp.MethodGet, "/api/v1/assistants", nil)
	var screen struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &screen))
	assert.Equal(t, 0, screen.Total)

	status, _ = admin.do(nethttp.MethodPut, "/api/v1/selection", gin.H{"filialeId": ""})
	require.Equal(t, nethttp.StatusOK, status)
	_, env = admin.do(nethttp.MethodGet, "/api/v1/assistants?q=max", nil)
	require.NoError(t, json.Unmarshal(env.Data, &screen))
	assert.Equal(t, 1, screen.Total)

	status, _ = admin.do(nethttp.MethodPut, "/api/v1/documents/d1/assistants/a1", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	status, env = admin.do(nethttp.MethodPut, "/api/v1/documents/missing/assistants/a1", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, response.CodeDocumentNotFound, env.Code)
	status, env = admin.do(nethttp.MethodPut, "/api/v1/documents/d1/assistants/ghost", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, response.CodeAssistantNotFound, env.Code)
}

func TestUserIsGated(t *testing.T) {
	router := newTestRouter(t)
	user := &client{t: t, router: router, device: "device-42"}
	user.login("alice@example.com", "000000")
	assert.Equal(t, "device-42", user.device)

	status, env := user.do(nethttp.MethodGet, "/api/v1/dashboard", nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, response.CodeForbidden, env.Code)

	status, env = user.do(nethttp.MethodGet, "/api/v1/selection", nil)
	require.Equal(t, nethttp.StatusOK, status)
	var sel struct {
		BranchID string `json:"selectedFilialeId"`
		Locked   bool   `json:"locked"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sel))
	assert.Equal(t, "f1", sel.BranchID)
	assert.True(t, sel.Locked)

	status, env = user.do(nethttp.MethodPut, "/api/v1/selection", gin.H{"filialeId": "f2"})
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, response.CodeSelectionLocked, env.Code)
}

func TestChatFlow(t *testing.T) {
	router := newTestRouter(t)
	user := &client{t: t, router: router}
	user.login("alice@example.com", "000000")

	type view struct {
		Phase     string `json:"phase"`
		Assistant *struct {
			Name string `json:"name"`
		} `json:"assistant"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Conversations []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"conversations"`
	}
	read := func(env envelope) view {
		var v view
		require.NoError(t, json.Unmarshal(env.Data, &v))
		return v
	}

	_, env := user.do(nethttp.MethodGet, "/api/v1/chat", nil)
	v := read(env)
	assert.Equal(t, "draft", v.Phase)
	require.NotNil(t, v.Assistant)
	assert.Equal(t, "Max", v.Assistant.Name)

	status, env := user.do(nethttp.MethodPost, "/api/v1/chat/messages", gin.H{"content": "Hello"})
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	v = read(env)
	require.Len(t, v.Conversations, 1)
	assert.Equal(t, "Hello", v.Conversations[0].Title)

	require.Eventually(t, func() bool {
		_, env := user.do(nethttp.MethodGet, "/api/v1/chat", nil)
		return len(read(env).Messages) == 3
	}, 2*time.Second, 10*time.Millisecond)

	_, env = user.do(nethttp.MethodGet, "/api/v1/chat?q=HEL", nil)
	assert.Len(t, read(env).Conversations, 1)
	_, env = user.do(nethttp.MethodGet, "/api/v1/chat?q=invoice", nil)
	assert.Empty(t, read(env).Conversations)

	status, env = user.do(nethttp.MethodPost, "/api/v1/chat/messages", gin.H{"content": "   "})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, response.CodeMessageEmpty, env.Code)

	status, env = user.do(nethttp.MethodDelete, "/api/v1/chat/conversations/"+v.Conversations[0].ID, nil)
	require.Equal(t, nethttp.StatusOK, status)
	v = read(env)
	assert.Equal(t, "draft", v.Phase)
	assert.Empty(t, v.Conversations)
	assert.Len(t, v.Messages, 1)
}

func TestLogout(t *testing.T) {
	router := newTestRouter(t)
	admin := &client{t: t, router: router}
	admin.login("admin", "admin")

	status, _ := admin.do(nethttp.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, nethttp.StatusOK, status)

	_, env := admin.do(nethttp.MethodGet, "/api/v1/auth/me", nil)
	var state struct {
		Authenticated bool `json:"isAuthenticated"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.False(t, state.Authenticated)

	status, env = admin.do(nethttp.MethodGet, "/api/v1/dashboard", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, response.CodeUnauthorized, env.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(nethttp.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"datasource"`)
}
