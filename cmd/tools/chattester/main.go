package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/chatwidget/internal/config"
	"github.com/zhouzirui/chatwidget/internal/display"
	"github.com/zhouzirui/chatwidget/internal/service/widget"
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

	base := flag.String("base", cfg.Widget.APIBase, "聊天后端地址，覆盖 CHAT_API_BASE")
	timeout := flag.Duration("timeout", cfg.Widget.RequestTimeout, "单次请求超时时间")
	text := flag.String("text", "", "只发送一条消息后退出")
	flag.Parse()

	widgetCfg := cfg.Widget
	widgetCfg.APIBase = *base
	widgetCfg.RequestTimeout = *timeout
	if err := widgetCfg.Validate(); err != nil {
		log.Fatalf("参数无效: %v", err)
	}

	transcript := display.NewTranscript()
	client := widget.NewClient(widgetCfg, display.Multi(display.NewTerminal(os.Stdout), transcript))

	if *text != "" {
		if err := client.SendMessage(context.Background(), *text); err != nil {
			os.Exit(1)
		}
		return
	}

	log.Printf("已连接 %s，输入 /history、/session 或 /quit", widgetCfg.APIBase)
	runREPL(client, transcript, *timeout)
}

func runREPL(client *widget.Client, transcript *display.Transcript, timeout time.Duration) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return
		case "/session":
			if id := client.SessionID(); id != "" {
				fmt.Println(id)
			} else {
				fmt.Println("(no session)")
			}
			continue
		case "/history":
			for _, entry := range transcript.Entries() {
				fmt.Println(entry)
			}
			continue
		}

		ctx, cancel := requestContext(timeout)
		// 失败已通过 Error 条目展示，这里继续等待下一条输入。
		_ = client.SendMessage(ctx, line)
		cancel()
	}

	if err := scanner.Err(); err != nil {
		log.Printf("读取输入失败: %v", err)
	}
}

func requestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
