package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/aiva/backend/internal/config"
	"github.com/zhouzirui/aiva/backend/internal/model/action"
	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
	sessionModel "github.com/zhouzirui/aiva/backend/internal/model/session"
	"github.com/zhouzirui/aiva/backend/internal/service/assistant"
	"github.com/zhouzirui/aiva/backend/internal/service/conversation"
	"github.com/zhouzirui/aiva/backend/internal/service/session"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	text := flag.String("text", "", "要解析的指令文本，多条用 | 分隔")
	page := flag.String("page", "", "当前页面")
	productID := flag.String("product", "", "当前正在查看的商品 ID")
	offline := flag.Bool("offline", false, "不调用大模型，仅使用规则与关键词回退")
	verbose := flag.Bool("v", false, "输出调试日志")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if strings.TrimSpace(*text) == "" {
		flag.Usage()
		log.Fatal("请通过 -text 指定指令")
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = config.LogConfig{Level: "debug", Format: "console"}.NewLogger()
		if err != nil {
			log.Fatalf("日志初始化失败: %v", err)
		}
	}

	products, err := catalog.Seed()
	if cfg.Catalog.File != "" {
		products, err = catalog.LoadFile(cfg.Catalog.File)
	}
	if err != nil {
		log.Fatalf("商品目录加载失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var delegate assistant.Delegate
	if !*offline && cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Fatalf("模型初始化失败: %v", err)
		}
		d, err := assistant.NewChatModelDelegate(chatModel, action.Tools())
		if err != nil {
			log.Fatalf("工具绑定失败: %v", err)
		}
		delegate = d
	} else {
		log.Println("[INFO] 未使用大模型，仅规则与关键词回退")
	}

	sessions := session.NewService(session.NewMemoryStore(), logger)
	sessionID := "manual-" + uuid.NewString()
	if err := seedContext(ctx, sessions, products, sessionID, *page, *productID); err != nil {
		log.Fatalf("会话初始化失败: %v", err)
	}

	assistantCfg := assistant.DefaultConfig()
	assistantCfg.FuzzyThreshold = cfg.Assistant.FuzzyThreshold
	assistantCfg.DescriptionLimit = cfg.Assistant.DescriptionLimit
	assistantCfg.FallbackDelay = 0
	resolver := assistant.NewResolver(products, delegate, nil, logger, assistantCfg)
	conv := conversation.NewService(sessions, resolver, logger)

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	for _, utterance := range strings.Split(*text, "|") {
		utterance = strings.TrimSpace(utterance)
		if utterance == "" {
			continue
		}
		log.Printf("[INFO] > %s", utterance)
		start := time.Now()
		err := conv.HandleUtterance(ctx, sessionID, utterance, func(ev action.Event) error {
			return enc.Encode(ev)
		})
		if err != nil {
			log.Fatalf("解析失败: %v", err)
		}
		log.Printf("[INFO] 完成，用时 %s", time.Since(start).Round(time.Millisecond))
	}
}

func seedContext(ctx context.Context, sessions *session.Service, products catalog.Catalog, id, page, productID string) error {
	if _, err := sessions.Open(ctx, id); err != nil {
		return err
	}

	var update sessionModel.Update
	if page != "" {
		update.CurrentPage = &page
	}
	if productID != "" {
		p, ok, err := products.ProductByID(ctx, productID)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("[WARN] 商品 %s 不存在，忽略", productID)
		} else {
			update.CurrentProduct = sessionModel.SnapshotOf(p)
		}
	}
	_, err := sessions.ApplyUpdate(ctx, id, update)
	return err
}
