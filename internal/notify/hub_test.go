package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chainvault/chainvault/pkg/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T, hub *Hub) (*websocket.Conn, string) {
	socketCh := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socketID, _, err := hub.Upgrade(w, r)
		require.NoError(t, err)
		socketCh <- socketID
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case socketID := <-socketCh:
		return client, socketID
	case <-time.After(2 * time.Second):
		t.Fatal("upgrade never completed")
		return nil, ""
	}
}

func TestHubEmitDeliversFrame(t *testing.T) {
	hub := NewHub()
	client, socketID := dialTestHub(t, hub)
	require.Equal(t, 1, hub.Len())

	fileID := uuid.New()
	result := types.UploadResult{FileID: fileID, ErrorMsg: "hash mismatch"}
	require.NoError(t, hub.Emit(socketID, UploadResultEvent, result))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Event string             `json:"event"`
		Data  types.UploadResult `json:"data"`
	}
	require.NoError(t, client.ReadJSON(&frame))

	assert.Equal(t, UploadResultEvent, frame.Event)
	assert.Equal(t, fileID, frame.Data.FileID)
	assert.Equal(t, "hash mismatch", frame.Data.ErrorMsg)
}

func TestHubEmitToUnknownSocketIsNoOp(t *testing.T) {
	hub := NewHub()
	assert.NoError(t, hub.Emit("no-such-socket", UploadResultEvent, nil))
}

func TestHubRelease(t *testing.T) {
	hub := NewHub()
	_, socketID := dialTestHub(t, hub)

	hub.Release(socketID)
	assert.Equal(t, 0, hub.Len())
	assert.NoError(t, hub.Emit(socketID, UploadResultEvent, nil))
}
