package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/zhouzirui/chatwidget/internal/config"
	"github.com/zhouzirui/chatwidget/internal/handler/chat"
	"github.com/zhouzirui/chatwidget/internal/handler/widget"
	"github.com/zhouzirui/chatwidget/internal/service/agent"
	chatService "github.com/zhouzirui/chatwidget/internal/service/chat"
	"github.com/zhouzirui/chatwidget/pkg/utils"
)

// NewRouter wires the chat API routes to core services.
func NewRouter(chatSvc *chatService.Service, orchestrator *agent.Orchestrator) http.Handler {
	r := baseRouter()
	r.Use(middleware.Timeout(60 * time.Second))

	chatHandler := chat.New(chatSvc, orchestrator)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		v1.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, chatSvc.Stats(r.Context()))
		})

		v1.Route("/chat", chatHandler.RegisterRoutes)
	})

	return r
}

// NewWidgetRouter serves the widget page and its websocket bridge.
func NewWidgetRouter(cfg config.WidgetConfig) http.Handler {
	r := baseRouter()
	widget.New(cfg).RegisterRoutes(r)
	return r
}

func baseRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// 挂件会被嵌入任意站点，因此放开跨域。
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		MaxAge:         300,
	}))

	return r
}
