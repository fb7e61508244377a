package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
)

func TestRelayAPI(t *testing.T) {
	relay := NewRelay()
	srv := httptest.NewServer(relay.Handler(""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/landmarks")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, relay.HandleLandmarks([]byte(expectedIndexPayload())))
	require.NoError(t, relay.HandleStatus([]byte(`{"mode":"predict","phase":"streaming","records":0}`)))

	resp, err = http.Get(srv.URL + "/api/landmarks")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var frame LandmarkFrame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frame))
	assert.Len(t, frame.Values, landmarks.Values)
	assert.Equal(t, landmarks.JointNames[:], frame.Joints)
	assert.InDelta(t, 6.2, frame.Values[62], 1e-9)

	st, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer st.Body.Close()
	var status Status
	require.NoError(t, json.NewDecoder(st.Body).Decode(&status))
	assert.Equal(t, PhaseStreaming, status.Phase)
}

func TestRelayRejectsBadPayloads(t *testing.T) {
	relay := NewRelay()
	assert.Error(t, relay.HandleLandmarks([]byte("1.0, 2.0")))
	assert.Error(t, relay.HandleLandmarks([]byte("")))
	assert.Error(t, relay.HandleStatus([]byte("{not json")))
}

func TestRelayWebsocketBroadcast(t *testing.T) {
	relay := NewRelay()
	srv := httptest.NewServer(relay.Handler(""))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return relay.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, relay.HandleLandmarks([]byte(expectedIndexPayload())))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "landmarks", msg.Type)
	require.NotNil(t, msg.Landmarks)
	assert.Len(t, msg.Landmarks.Values, landmarks.Values)

	require.NoError(t, relay.HandleStatus([]byte(`{"phase":"done"}`)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "status", msg.Type)
	assert.JSONEq(t, `{"phase":"done"}`, string(msg.Status))

	conn.Close()
	require.Eventually(t, func() bool { return relay.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestRelayServesViewer(t *testing.T) {
	srv := httptest.NewServer(NewRelay().Handler(filepath.Join("..", "..", viewerDir)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"/ws"`)
}
