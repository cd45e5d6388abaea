package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zhouzirui/aiva/backend/internal/config"
	"github.com/zhouzirui/aiva/backend/internal/handler"
	"github.com/zhouzirui/aiva/backend/internal/handler/voice"
	"github.com/zhouzirui/aiva/backend/internal/model/action"
	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
	"github.com/zhouzirui/aiva/backend/internal/service/assistant"
	"github.com/zhouzirui/aiva/backend/internal/service/conversation"
	"github.com/zhouzirui/aiva/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	products, err := loadCatalog(cfg.Catalog)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("products", len(products.List())))

	store, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		logger.Fatal("failed to initialize session store", zap.Error(err))
	}
	defer store.Close()
	sessions := session.NewService(store, logger)

	// Without a model every unmatched utterance is answered from keywords
	var delegate assistant.Delegate
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			logger.Warn("failed to initialize chat model, continuing with keyword fallback", zap.Error(err))
		} else if d, err := assistant.NewChatModelDelegate(chatModel, action.Tools()); err != nil {
			logger.Warn("failed to bind tools, continuing with keyword fallback", zap.Error(err))
		} else {
			delegate = d
			logger.Info("chat model initialized", zap.String("model", cfg.AI.Model))
		}
	} else {
		logger.Info("Ark 凭证未配置，使用关键词回退")
	}

	resolver := assistant.NewResolver(products, delegate, nil, logger, assistant.Config{
		FuzzyThreshold:   cfg.Assistant.FuzzyThreshold,
		DescriptionLimit: cfg.Assistant.DescriptionLimit,
		FallbackDelay:    cfg.Assistant.FallbackDelay,
	})
	conv := conversation.NewService(sessions, resolver, logger)

	router := handler.NewRouter(handler.Deps{
		Catalog:      products,
		Sessions:     sessions,
		Conversation: conv,
		Registry:     voice.NewRegistry(),
		Logger:       logger,
	})

	startServer(ctx, logger, cfg.Server, router)
}

func loadCatalog(cfg config.CatalogConfig) (*catalog.MemoryStore, error) {
	if cfg.File == "" {
		return catalog.Seed()
	}
	return catalog.LoadFile(cfg.File)
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	if cfg.Store != string(session.StoreTypeRedis) {
		return session.NewStore(session.StoreTypeMemory, session.WithTTL(cfg.TTL))
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return session.NewStore(session.StoreTypeRedis, session.WithRedisClient(client), session.WithTTL(cfg.TTL))
}

func startServer(ctx context.Context, logger *zap.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("AIVA backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
