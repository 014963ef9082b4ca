package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxdesk/internal/domain"
)

// WSConfig configures the transcription push channel.
type WSConfig struct {
	Host   string
	Port   int
	Path   string // endpoint path (default: /transcription)
	Logger *slog.Logger
}

// WSMessage is the JSON protocol on the push channel. Inbound events are
// "transcription" ({text}) and "error" ({message}); outbound replies use
// "reply".
type WSMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// WebSocketChannel is the out-of-band transcription event source: an
// external transcriber pushes {text} events that become commands, and
// {message} error events surfaced inline.
type WebSocketChannel struct {
	host   string
	port   int
	path   string
	bus    domain.CommandBus
	logger *slog.Logger
	server *http.Server

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local bridge endpoint; bind host restricts exposure
	},
}

func NewWebSocketChannel(cfg WSConfig) *WebSocketChannel {
	if cfg.Path == "" {
		cfg.Path = "/transcription"
	}
	if cfg.Port == 0 {
		cfg.Port = 8765
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	return &WebSocketChannel{
		host:    cfg.Host,
		port:    cfg.Port,
		path:    cfg.Path,
		logger:  cfg.Logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (ws *WebSocketChannel) Name() string { return "websocket" }

// Start serves the push endpoint until ctx is cancelled.
func (ws *WebSocketChannel) Start(ctx context.Context, bus domain.CommandBus) error {
	ws.bus = bus

	bus.OnReply("websocket", func(reply domain.OutboundReply) {
		ws.broadcast(WSMessage{Type: "reply", Text: reply.Text})
	})

	mux := http.NewServeMux()
	mux.HandleFunc(ws.path, ws.handleConn)

	addr := fmt.Sprintf("%s:%d", ws.host, ws.port)
	ws.server = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		ws.logger.Info("transcription push channel listening", "addr", addr, "path", ws.path)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ws.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("websocket server: %w", err)
	}
}

func (ws *WebSocketChannel) Stop() error {
	if ws.server == nil {
		return nil
	}
	return ws.server.Close()
}

func (ws *WebSocketChannel) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	ws.mu.Lock()
	ws.clients[conn] = struct{}{}
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		delete(ws.clients, conn)
		ws.mu.Unlock()
		conn.Close()
	}()

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.Warn("websocket read failed", "err", err)
			}
			return
		}

		switch msg.Type {
		case "transcription":
			if msg.Text == "" {
				continue
			}
			ws.bus.Publish(domain.InboundCommand{
				Channel:   "websocket",
				ChatID:    conn.RemoteAddr().String(),
				Text:      msg.Text,
				Source:    domain.SourcePush,
				Timestamp: time.Now(),
			})
		case "error":
			ws.bus.Publish(domain.InboundCommand{
				Channel:   "websocket",
				ChatID:    conn.RemoteAddr().String(),
				Text:      msg.Message,
				Source:    domain.SourcePush,
				Error:     true,
				Timestamp: time.Now(),
			})
		default:
			ws.logger.Debug("ignoring unknown push event", "type", msg.Type)
		}
	}
}

func (ws *WebSocketChannel) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	ws.mu.RLock()
	defer ws.mu.RUnlock()
	for conn := range ws.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			ws.logger.Warn("websocket write failed", "err", err)
		}
	}
}
