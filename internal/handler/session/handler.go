package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/aiva/backend/internal/model/session"
	sessionService "github.com/zhouzirui/aiva/backend/internal/service/session"
	"github.com/zhouzirui/aiva/backend/pkg/utils"
)

// Handler 会话上下文的HTTP处理器
type Handler struct {
	sessions *sessionService.Service
	logger   *zap.Logger
}

// New 创建会话处理器
func New(sessions *sessionService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, logger: logger.Named("session_handler")}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreate)
	r.Get("/session/{id}", h.handleGet)
	r.Put("/session/{id}/context", h.handleUpdateContext)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	sc, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, sc)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sc, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sc)
}

// handleUpdateContext 合并前端发送的局部上下文
func (h *Handler) handleUpdateContext(w http.ResponseWriter, r *http.Request) {
	var update session.Update
	if err := utils.DecodeJSON(w, r, &update); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sc, err := h.sessions.ApplyUpdate(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sc)
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionService.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, sessionService.ErrSessionIDRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sessionService.ErrVersionConflict):
		utils.RespondError(w, http.StatusConflict, "session changed concurrently, retry")
	default:
		h.logger.Error("session store failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "session store unavailable")
	}
}
