package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/config"
	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
	"github.com/relabs-tech/myo_landmarks/internal/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local network viewer
	},
}

// LandmarkFrame is the JSON form of one predicted frame.
type LandmarkFrame struct {
	Time   time.Time `json:"time"`
	Joints []string  `json:"joints,omitempty"`
	Values []float64 `json:"values"`
}

// WSMessage is pushed to every websocket client.
type WSMessage struct {
	Type      string          `json:"type"` // landmarks, status
	Landmarks *LandmarkFrame  `json:"landmarks,omitempty"`
	Status    json.RawMessage `json:"status,omitempty"`
}

// Relay keeps the latest landmark frame and status and fans them out to
// websocket clients.
type Relay struct {
	mu         sync.RWMutex
	last       *LandmarkFrame
	lastStatus json.RawMessage

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewRelay returns an empty relay.
func NewRelay() *Relay {
	return &Relay{clients: make(map[*wsClient]struct{})}
}

// HandleLandmarks accepts one datagram payload.
func (r *Relay) HandleLandmarks(payload []byte) error {
	values, err := landmarks.Parse(string(payload))
	if err != nil {
		return err
	}
	if len(values) != landmarks.Values {
		return fmt.Errorf("landmark payload has %d values, want %d", len(values), landmarks.Values)
	}
	frame := &LandmarkFrame{Time: time.Now(), Values: values}
	r.mu.Lock()
	r.last = frame
	r.mu.Unlock()
	r.broadcast(WSMessage{Type: "landmarks", Landmarks: frame})
	return nil
}

// HandleStatus accepts one JSON status event.
func (r *Relay) HandleStatus(payload []byte) error {
	if !json.Valid(payload) {
		return errors.New("status payload is not JSON")
	}
	raw := append(json.RawMessage(nil), payload...)
	r.mu.Lock()
	r.lastStatus = raw
	r.mu.Unlock()
	r.broadcast(WSMessage{Type: "status", Status: raw})
	return nil
}

func (r *Relay) broadcast(msg WSMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		klog.Errorf("web: json marshal error: %v", err)
		return
	}
	r.clientsMu.Lock()
	defer r.clientsMu.Unlock()
	for c := range r.clients {
		select {
		case c.send <- b:
		default:
			// slow viewer; it misses this frame
		}
	}
}

// Handler serves the API, the websocket feed and static files from dir.
func (r *Relay) Handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/landmarks", func(w http.ResponseWriter, _ *http.Request) {
		r.mu.RLock()
		last := r.last
		r.mu.RUnlock()
		if last == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		out := *last
		out.Joints = landmarks.JointNames[:]
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			klog.Errorf("web: json encode error: %v", err)
		}
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		r.mu.RLock()
		st := r.lastStatus
		r.mu.RUnlock()
		if st == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(st)
	})
	mux.HandleFunc("/ws", r.serveWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func (r *Relay) serveWS(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		klog.Warningf("web: websocket upgrade error: %v", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, 64)}
	r.clientsMu.Lock()
	r.clients[c] = struct{}{}
	n := len(r.clients)
	r.clientsMu.Unlock()
	klog.V(1).Infof("web: websocket client connected (%d total)", n)

	done := make(chan struct{})
	go func() {
		// drain control frames until the viewer goes away
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		r.clientsMu.Lock()
		delete(r.clients, c)
		r.clientsMu.Unlock()
		conn.Close()
	}()
	for {
		select {
		case <-done:
			return
		case b := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				klog.V(1).Infof("web: websocket write error: %v", err)
				return
			}
		}
	}
}

// Clients returns the number of connected websocket viewers.
func (r *Relay) Clients() int {
	r.clientsMu.Lock()
	defer r.clientsMu.Unlock()
	return len(r.clients)
}

// viewerDir holds the browser viewer, relative to the working directory.
const viewerDir = "web"

// RunWeb relays the MQTT landmark and status topics to HTTP clients.
func RunWeb(ctx context.Context, cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return errors.New("MQTT_BROKER is required for the web relay")
	}
	client, err := transport.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	relay := NewRelay()
	subs := map[string]func([]byte) error{
		cfg.TopicLandmarks: relay.HandleLandmarks,
		cfg.TopicStatus:    relay.HandleStatus,
	}
	for topic, handle := range subs {
		handle := handle
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			if err := handle(msg.Payload()); err != nil {
				klog.Warningf("web: %s: %v", msg.Topic(), err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		klog.Infof("web: subscribed to %s", topic)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           relay.Handler(viewerDir),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		klog.Infof("web: server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
