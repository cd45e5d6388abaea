package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	catalogHandler "github.com/zhouzirui/aiva/backend/internal/handler/catalog"
	"github.com/zhouzirui/aiva/backend/internal/handler/command"
	sessionHandler "github.com/zhouzirui/aiva/backend/internal/handler/session"
	"github.com/zhouzirui/aiva/backend/internal/handler/voice"
	middlewarePkg "github.com/zhouzirui/aiva/backend/internal/middleware"
	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
	sessionService "github.com/zhouzirui/aiva/backend/internal/service/session"
	"github.com/zhouzirui/aiva/backend/pkg/utils"
)

const version = "2.0.0"

// Deps 路由依赖的核心服务
type Deps struct {
	Catalog      catalog.Catalog
	Sessions     *sessionService.Service
	Conversation command.Conversation
	Registry     *voice.Registry
	Logger       *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = voice.NewRegistry()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/health", healthHandler(deps))

	r.Route("/api", func(api chi.Router) {
		catalogHandler.New(deps.Catalog, deps.Logger).RegisterRoutes(api)
		sessionHandler.New(deps.Sessions, deps.Logger).RegisterRoutes(api)
		command.New(deps.Conversation, deps.Sessions, deps.Logger).RegisterRoutes(api)
		voice.NewWebSocketHandler(deps.Conversation, deps.Sessions, deps.Registry, deps.Logger).RegisterRoutes(api)
	})

	return r
}

// healthHandler 报告服务状态、已加载商品数与活跃连接数
func healthHandler(deps Deps) http.HandlerFunc {
	type lister interface {
		List() []catalog.Product
	}
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":             "healthy",
			"timestamp":          time.Now().UTC().Format(time.RFC3339),
			"version":            version,
			"active_connections": deps.Registry.Active(),
		}
		if l, ok := deps.Catalog.(lister); ok {
			body["products_loaded"] = len(l.List())
		}
		utils.RespondJSON(w, http.StatusOK, body)
	}
}
