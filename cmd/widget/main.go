package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/chatwidget/internal/config"
	"github.com/zhouzirui/chatwidget/internal/handler"
	"github.com/zhouzirui/chatwidget/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	base := flag.String("base", cfg.Widget.APIBase, "聊天后端地址，覆盖 CHAT_API_BASE")
	addr := flag.String("addr", cfg.Server.WidgetAddr, "挂件服务监听地址，覆盖 WIDGET_PORT")
	flag.Parse()

	cfg.Widget.APIBase = *base
	if err := cfg.Widget.Validate(); err != nil {
		log.Fatalf("invalid -base: %v", err)
	}
	log.Printf("widget bridge forwarding to %s", cfg.Widget.APIBase)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler.NewWidgetRouter(cfg.Widget),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("widget server listening on %s", *addr)
	if err := utils.RunServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
