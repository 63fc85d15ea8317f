package widget

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chatwidget/internal/model/chat"
	"github.com/zhouzirui/chatwidget/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
	// maxFrameBytes 与 HTTP 接口的请求体上限保持一致。
	maxFrameBytes = utils.MaxBodyBytes
)

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// EntryMessage 是推送给浏览器的一条展示记录
type EntryMessage struct {
	Role  chat.Role `json:"role"`
	Label string    `json:"label"`
	Text  string    `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// socketDisplay 把展示记录写回 WebSocket；写操作串行化。
type socketDisplay struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (d *socketDisplay) Display(role chat.Role, text string) {
	d.send(outgoingMessage{
		Type:      "entry",
		Data:      EntryMessage{Role: role, Label: role.Label(), Text: text},
		Timestamp: time.Now().Unix(),
	})
}

func (d *socketDisplay) send(msg outgoingMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_ = d.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := d.conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", msg.Type, err)
	}
}

func (d *socketDisplay) sendError(message string) {
	d.send(outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	})
}

// handleWebSocket 处理WebSocket连接；每个连接就是一个挂件实例
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	display := &socketDisplay{conn: conn}
	client := h.newClient(display)

	ctx, cancel := context.WithCancel(context.Background())
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
	}()

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	log.Printf("[websocket] widget connected remote=%s", r.RemoteAddr)
	display.send(outgoingMessage{Type: "connected", Timestamp: time.Now().Unix()})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "text":
			var text TextMessage
			if err := json.Unmarshal(msg.Data, &text); err != nil {
				display.sendError("invalid text payload")
				continue
			}
			// Submit 在读循环内同步排队，保证按到达顺序展示和发送。
			result := client.Submit(ctx, text.Text)
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				<-result
			}()
		case "status":
			display.send(outgoingMessage{
				Type:      "status",
				SessionID: client.SessionID(),
				Timestamp: time.Now().Unix(),
			})
		default:
			display.sendError("unsupported message type: " + msg.Type)
		}
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
