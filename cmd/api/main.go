package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/chatwidget/internal/config"
	"github.com/zhouzirui/chatwidget/internal/handler"
	"github.com/zhouzirui/chatwidget/internal/service/agent"
	"github.com/zhouzirui/chatwidget/internal/service/ai"
	"github.com/zhouzirui/chatwidget/internal/service/chat"
	"github.com/zhouzirui/chatwidget/pkg/utils"
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

	chatService := chat.NewService()

	// 未配置模型时 responder 保持 nil，编排器回退到模板回复。
	var responder agent.Responder
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI, cfg.Clinic)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing with templated replies - 请检查 Ark 模型相关环境变量")
		} else {
			responder = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，使用模板回复")
	}

	orchestrator := agent.New(responder, cfg.Clinic)
	router := handler.NewRouter(chatService, orchestrator)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("chat API listening on %s", addr)
	if err := utils.RunServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
