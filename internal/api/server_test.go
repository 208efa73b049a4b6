package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"emubridge/internal/input"
	"emubridge/internal/protocol"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu         sync.Mutex
	captured   bool
	captureErr error
	onChange   func(bool)
}

func (f *fakeController) CaptureMouse() error {
	return f.set(true)
}

func (f *fakeController) UncaptureMouse() error {
	return f.set(false)
}

func (f *fakeController) set(on bool) error {
	f.mu.Lock()
	if on && f.captureErr != nil {
		f.mu.Unlock()
		return f.captureErr
	}
	changed := f.captured != on
	f.captured = on
	cb := f.onChange
	f.mu.Unlock()

	if changed && cb != nil {
		cb(on)
	}
	return nil
}

func (f *fakeController) Captured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captured
}

func newTestServer(t *testing.T, ctrl *fakeController, token string) *httptest.Server {
	t.Helper()
	s := NewServer(ctrl, token)
	ctrl.onChange = s.BroadcastState
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts
}

func do(t *testing.T, method, url, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestCaptureAndStatus(t *testing.T) {
	ctrl := &fakeController{}
	ts := newTestServer(t, ctrl, "")

	resp, body := do(t, http.MethodGet, ts.URL+"/api/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["captured"])

	resp, body = do(t, http.MethodPost, ts.URL+"/api/capture", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["captured"])
	assert.True(t, ctrl.Captured())

	resp, body = do(t, http.MethodPost, ts.URL+"/api/uncapture", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["captured"])
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &fakeController{}, "")

	resp, _ := do(t, http.MethodGet, ts.URL+"/api/capture", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCaptureFailureReportsConflict(t *testing.T) {
	ctrl := &fakeController{captureErr: errors.New("pointer busy")}
	ts := newTestServer(t, ctrl, "")

	resp, body := do(t, http.MethodPost, ts.URL+"/api/capture", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, body["captured"])
	assert.Equal(t, "pointer busy", body["error"])
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t, &fakeController{}, "secret")

	resp, _ := do(t, http.MethodGet, ts.URL+"/api/status", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/status", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/status", "secret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// health is always open
	resp, body := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func dialWS(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg protocol.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func payloadMap(t *testing.T, msg protocol.Message) map[string]interface{} {
	t.Helper()
	m, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok, "payload %#v", msg.Payload)
	return m
}

func TestWebSocketStateAndRequests(t *testing.T) {
	ctrl := &fakeController{}
	ts := newTestServer(t, ctrl, "tok")
	conn := dialWS(t, ts, "tok")

	// current state on connect
	msg := readMessage(t, conn)
	assert.Equal(t, protocol.TypeState, msg.Type)
	assert.Equal(t, false, payloadMap(t, msg)["captured"])

	require.NoError(t, conn.WriteJSON(protocol.Message{Type: protocol.TypeCapture}))
	msg = readMessage(t, conn)
	assert.Equal(t, protocol.TypeState, msg.Type)
	assert.Equal(t, true, payloadMap(t, msg)["captured"])
	assert.True(t, ctrl.Captured())

	// HTTP changes are broadcast to WebSocket clients
	resp, _ := do(t, http.MethodPost, ts.URL+"/api/uncapture", "tok")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	msg = readMessage(t, conn)
	assert.Equal(t, protocol.TypeState, msg.Type)
	assert.Equal(t, false, payloadMap(t, msg)["captured"])
}

func TestWebSocketRequestFailure(t *testing.T) {
	ctrl := &fakeController{captureErr: errors.New("pointer busy")}
	ts := newTestServer(t, ctrl, "")
	conn := dialWS(t, ts, "")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(protocol.Message{Type: protocol.TypeCapture}))

	msg := readMessage(t, conn)
	require.Equal(t, protocol.TypeError, msg.Type)
	payload := payloadMap(t, msg)
	assert.Equal(t, "capture", payload["request"])
	assert.Equal(t, "pointer busy", payload["error"])

	msg = readMessage(t, conn)
	assert.Equal(t, protocol.TypeState, msg.Type)
	assert.Equal(t, false, payloadMap(t, msg)["captured"])
}

func TestWebSocketRequiresToken(t *testing.T) {
	ts := newTestServer(t, &fakeController{}, "tok")

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

type panickingController struct {
	fakeController
	value any
}

func (p *panickingController) CaptureMouse() error { panic(p.value) }

func TestControllerPanics(t *testing.T) {
	ctrl := &panickingController{value: "boom"}
	s := NewServer(ctrl, "")
	defer s.Close()
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/capture", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	err := safeCall(ctrl.CaptureMouse)
	assert.ErrorContains(t, err, "boom")

	// capturing before the host has a view is a wiring bug and stays fatal
	ctrl.value = input.ErrNoView
	assert.PanicsWithError(t, input.ErrNoView.Error(), func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/capture", nil))
	})
	assert.PanicsWithError(t, input.ErrNoView.Error(), func() { _ = safeCall(ctrl.CaptureMouse) })
}
