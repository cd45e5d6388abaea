package command

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/aiva/backend/internal/model/action"
	conversationService "github.com/zhouzirui/aiva/backend/internal/service/conversation"
	sessionService "github.com/zhouzirui/aiva/backend/internal/service/session"
	"github.com/zhouzirui/aiva/backend/pkg/utils"
)

// Conversation 处理一句用户指令并按顺序转发事件
type Conversation interface {
	HandleUtterance(ctx context.Context, sessionID, text string, forward conversationService.Forward) error
}

// Handler 通过Server-Sent Events推送指令解析事件
type Handler struct {
	conversation Conversation
	sessions     *sessionService.Service
	logger       *zap.Logger
}

// New 创建指令处理器
func New(conversation Conversation, sessions *sessionService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{conversation: conversation, sessions: sessions, logger: logger.Named("command")}
}

// RegisterRoutes 注册指令路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/command/{sessionID}", h.handleCommand)
}

type commandRequest struct {
	Text string `json:"text"`
}

// handleCommand 每个事件作为一个 data 块写出，流以 complete 事件结束
func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req commandRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	if _, err := h.sessions.Open(r.Context(), sessionID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sessionService.ErrSessionIDRequired) {
			status = http.StatusBadRequest
		}
		h.logger.Warn("open session failed", zap.String("session_id", sessionID), zap.Error(err))
		utils.RespondError(w, status, "session unavailable")
		return
	}

	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	terminated := false
	err = h.conversation.HandleUtterance(r.Context(), sessionID, req.Text, func(ev action.Event) error {
		if ev.Terminal() {
			terminated = true
		}
		return sse.Send(ev)
	})
	if err != nil {
		if r.Context().Err() != nil {
			h.logger.Debug("client went away", zap.String("session_id", sessionID))
			return
		}
		h.logger.Error("command failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if !terminated {
		// the stream already started, so failures are reported in-band
		_ = sse.Send(action.Error("Si è verificato un errore. Riprova."))
		_ = sse.Send(action.Complete())
	}
}
