package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/dashtx/stream"
)

// Api serves the browser client and pushes dash patterns to it over websockets.
type Api struct {
	listen    string
	staticDir string
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	// Last update per layer, sent to clients as they connect.
	latest map[string]stream.Update
	seq    map[string]uint64
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewApi creates an Api that will listen on listen and serve files from staticDir.
func NewApi(listen, staticDir string) *Api {
	a := new(Api)
	a.listen = listen
	a.staticDir = staticDir
	a.clients = make(map[*client]struct{})
	a.latest = make(map[string]stream.Update)
	a.seq = make(map[string]uint64)
	return a
}

// Handler returns the routes served by the Api.
func (a *Api) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/dasharray", a.serveWs)
	if a.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(a.staticDir)))
	}
	return mux
}

// Serve listens until ctx is done. Websocket clients are disconnected on shutdown.
func (a *Api) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: a.listen, Handler: a.Handler()}
	srv.RegisterOnShutdown(a.closeClients)

	shutdown := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	logrus.WithField("listen", a.listen).Info("Listening...")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdown
}

// closeClients closes every hijacked websocket connection so their readers return.
func (a *Api) closeClients() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for c := range a.clients {
		c.conn.Close()
	}
}

// Clients is the number of connected websocket clients.
func (a *Api) Clients() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.clients)
}

// SetDashPattern records the pattern for clients that connect later and
// broadcasts it to every connected client. A client that is not keeping up
// misses the update.
func (a *Api) SetDashPattern(layerID string, p stream.Pattern) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq[layerID]++
	u := stream.Update{LayerID: layerID, Seq: a.seq[layerID], Pattern: p}
	a.latest[layerID] = u
	if len(a.clients) == 0 {
		return nil
	}

	js, err := json.Marshal(u)
	if err != nil {
		return err
	}
	for c := range a.clients {
		select {
		case c.send <- js:
		default:
			logrus.WithField("remote", c.conn.RemoteAddr().String()).Debug("Websocket client blocked")
		}
	}
	return nil
}

func (a *Api) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 32)}

	a.mu.Lock()
	for _, u := range a.latest {
		js, err := json.Marshal(u)
		if err != nil {
			continue
		}
		select {
		case c.send <- js:
		default:
		}
	}
	a.clients[c] = struct{}{}
	a.mu.Unlock()
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("Websocket client connected")

	done := make(chan struct{})
	go a.writeLoop(c, done)

	// Reads only detect the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	a.mu.Lock()
	delete(a.clients, c)
	a.mu.Unlock()
	close(done)
	conn.Close()
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("Websocket client disconnected")
}

func (a *Api) writeLoop(c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case js := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, js); err != nil {
				logrus.WithError(err).Debug("Websocket write failed")
				return
			}
		}
	}
}
