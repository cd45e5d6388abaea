package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/aiva/backend/internal/handler/command"
	"github.com/zhouzirui/aiva/backend/internal/model/action"
	"github.com/zhouzirui/aiva/backend/internal/model/session"
	sessionService "github.com/zhouzirui/aiva/backend/internal/service/session"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Message types accepted from the client.
const (
	typeVoiceCommand      = "voice_command"
	typeUpdateContext     = "update_context"
	typeUpdatePreferences = "update_preferences"
)

// WebSocketHandler 语音指令的WebSocket处理器
type WebSocketHandler struct {
	conversation command.Conversation
	sessions     *sessionService.Service
	registry     *Registry
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	now          func() time.Time
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(conversation command.Conversation, sessions *sessionService.Service, registry *Registry, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &WebSocketHandler{
		conversation: conversation,
		sessions:     sessions,
		registry:     registry,
		logger:       logger.Named("voice"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		now: time.Now,
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type        string               `json:"type"`
	Text        string               `json:"text,omitempty"`
	Context     *session.Update      `json:"context,omitempty"`
	Preferences *session.Preferences `json:"preferences,omitempty"`
}

// eventFrame 是转发给客户端的解析事件，附带时间戳
type eventFrame struct {
	action.Event
	Timestamp string `json:"timestamp"`
}

type infoFrame struct {
	Type        string               `json:"type"`
	SessionID   string               `json:"sessionId,omitempty"`
	Message     string               `json:"message,omitempty"`
	Context     *session.Context     `json:"context,omitempty"`
	Preferences *session.Preferences `json:"preferences,omitempty"`
	Timestamp   string               `json:"timestamp"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}
	if _, err := h.sessions.Open(r.Context(), sessionID); err != nil {
		h.logger.Warn("open session failed", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.registry.add(sessionID)
	defer h.registry.remove(sessionID)
	log := h.logger.With(zap.String("session_id", sessionID))
	log.Info("connection opened", zap.Int("active", h.registry.Active()))

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	g, ctx := errgroup.WithContext(r.Context())
	// each side closes the socket on exit so the other unblocks
	g.Go(func() error {
		defer conn.Close()
		return h.pingLoop(ctx, conn)
	})
	g.Go(func() error {
		defer conn.Close()
		if err := h.send(conn, infoFrame{Type: "connected", SessionID: sessionID}); err != nil {
			return err
		}
		return h.readLoop(ctx, conn, sessionID)
	})

	if err := g.Wait(); err != nil && !isClosure(err) {
		log.Warn("connection ended", zap.Error(err))
		return
	}
	log.Info("connection closed")
}

func isClosure(err error) bool {
	return errors.Is(err, context.Canceled) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}

func (h *WebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string) error {
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				if err := h.sendError(conn, "invalid message"); err != nil {
					return err
				}
				continue
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		if err := h.handleMessage(ctx, conn, sessionID, &msg); err != nil {
			return err
		}
	}
}

// handleMessage 只有写失败会返回错误，业务错误以 error 帧告知客户端
func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, sessionID string, msg *inboundMessage) error {
	switch msg.Type {
	case typeVoiceCommand:
		return h.handleVoiceCommand(ctx, conn, sessionID, msg.Text)
	case typeUpdateContext:
		if msg.Context == nil {
			return h.sendError(conn, "context is required")
		}
		sc, err := h.sessions.ApplyUpdate(ctx, sessionID, *msg.Context)
		if err != nil {
			h.logger.Warn("update context failed", zap.String("session_id", sessionID), zap.Error(err))
			return h.sendError(conn, "context update failed")
		}
		return h.send(conn, infoFrame{Type: "context_updated", SessionID: sessionID, Context: sc})
	case typeUpdatePreferences:
		if msg.Preferences == nil {
			return h.sendError(conn, "preferences are required")
		}
		sc, err := h.sessions.MergePreferences(ctx, sessionID, *msg.Preferences)
		if err != nil {
			h.logger.Warn("update preferences failed", zap.String("session_id", sessionID), zap.Error(err))
			return h.sendError(conn, "preferences update failed")
		}
		return h.send(conn, infoFrame{Type: "preferences_updated", SessionID: sessionID, Preferences: &sc.Preferences})
	default:
		return h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

// handleVoiceCommand 用 stream_start / stream_complete 包裹一次解析的全部事件
func (h *WebSocketHandler) handleVoiceCommand(ctx context.Context, conn *websocket.Conn, sessionID, text string) error {
	if text == "" {
		return h.sendError(conn, "text is required")
	}
	if err := h.send(conn, infoFrame{Type: "stream_start", SessionID: sessionID}); err != nil {
		return err
	}

	var writeErr error
	terminated := false
	err := h.conversation.HandleUtterance(ctx, sessionID, text, func(ev action.Event) error {
		if ev.Terminal() {
			terminated = true
		}
		writeErr = h.send(conn, eventFrame{Event: ev, Timestamp: h.timestamp()})
		return writeErr
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		h.logger.Error("voice command failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if !terminated {
		// same in-band closing pair as the SSE endpoint
		for _, ev := range []action.Event{action.Error("Si è verificato un errore. Riprova."), action.Complete()} {
			if err := h.send(conn, eventFrame{Event: ev, Timestamp: h.timestamp()}); err != nil {
				return err
			}
		}
	}
	return h.send(conn, infoFrame{Type: "stream_complete", SessionID: sessionID})
}

func (h *WebSocketHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}

func (h *WebSocketHandler) send(conn *websocket.Conn, frame any) error {
	if f, ok := frame.(infoFrame); ok && f.Timestamp == "" {
		f.Timestamp = h.timestamp()
		frame = f
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(frame)
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) error {
	return h.send(conn, infoFrame{Type: "error", Message: message})
}

// pingLoop 定期发送ping，WriteControl可与WriteJSON并发调用
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return err
			}
		}
	}
}
