package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/dashtx/stream"
)

type wireUpdate struct {
	Layer     string    `json:"layer"`
	Seq       uint64    `json:"seq"`
	DashArray []float64 `json:"dasharray"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/dasharray"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) wireUpdate {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var u wireUpdate
	require.NoError(t, json.Unmarshal(msg, &u))
	return u
}

func TestNoClientsRecordsPattern(t *testing.T) {
	a := NewApi(":0", "")
	assert.NoError(t, a.SetDashPattern("line", stream.Pattern{1, 3, 0, 0}))
	assert.Zero(t, a.Clients())
}

func TestBroadcast(t *testing.T) {
	a := NewApi(":0", "")
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	c1 := dial(t, srv)
	c2 := dial(t, srv)
	require.Eventually(t, func() bool { return a.Clients() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, a.SetDashPattern("line", stream.Pattern{0.5, 3, 0.5, 0}))
	for _, c := range []*websocket.Conn{c1, c2} {
		u := readUpdate(t, c)
		assert.Equal(t, "line", u.Layer)
		assert.Equal(t, uint64(1), u.Seq)
		assert.Equal(t, []float64{0.5, 3, 0.5, 0}, u.DashArray)
	}
}

func TestLateClientGetsLatest(t *testing.T) {
	a := NewApi(":0", "")
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	a.SetDashPattern("line", stream.Pattern{1, 3, 0, 0})
	a.SetDashPattern("line", stream.Pattern{0.9, 3, 0.1, 0})

	c := dial(t, srv)
	u := readUpdate(t, c)
	assert.Equal(t, uint64(2), u.Seq)
	assert.InDelta(t, 0.9, u.DashArray[0], 1e-6)
}

func TestClientDisconnect(t *testing.T) {
	a := NewApi(":0", "")
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	c := dial(t, srv)
	require.Eventually(t, func() bool { return a.Clients() == 1 }, time.Second, time.Millisecond)
	c.Close()
	require.Eventually(t, func() bool { return a.Clients() == 0 }, time.Second, time.Millisecond)
}

func TestServesStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>dash</html>"), 0o644))

	a := NewApi(":0", dir)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestCloseClientsEndsReaders(t *testing.T) {
	a := NewApi(":0", "")
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	c := dial(t, srv)
	require.Eventually(t, func() bool { return a.Clients() == 1 }, time.Second, time.Millisecond)

	a.closeClients()
	require.Eventually(t, func() bool { return a.Clients() == 0 }, time.Second, time.Millisecond)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c.ReadMessage()
	assert.Error(t, err)
}

func TestServeReturnsOnCancel(t *testing.T) {
	a := NewApi("127.0.0.1:0", "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestServeReportsListenError(t *testing.T) {
	a := NewApi("256.0.0.1:bad", "")
	err := a.Serve(context.Background())
	assert.Error(t, err)
}
