package widget

import (
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chatwidget/internal/config"
	widgetService "github.com/zhouzirui/chatwidget/internal/service/widget"
)

//go:embed static/index.html static/widget.js
var staticFiles embed.FS

// ClientFactory 为每个挂件实例创建独立的客户端。
type ClientFactory func(display widgetService.Display) *widgetService.Client

// Handler 提供挂件页面以及浏览器到聊天后端的 WebSocket 桥接。
type Handler struct {
	newClient ClientFactory
	upgrader  websocket.Upgrader
}

// New 创建挂件处理器，每个连接使用 cfg 构造一个新的客户端。
func New(cfg config.WidgetConfig) *Handler {
	return NewWithFactory(func(display widgetService.Display) *widgetService.Client {
		return widgetService.NewClient(cfg, display)
	})
}

// NewWithFactory 使用自定义的客户端工厂创建处理器。
func NewWithFactory(factory ClientFactory) *Handler {
	return &Handler{
		newClient: factory,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册挂件相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/widget.js", h.handleScript)
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, staticFiles, "static/index.html")
}

func (h *Handler) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFileFS(w, r, staticFiles, "static/widget.js")
}
