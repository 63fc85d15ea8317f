package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/zhouzirui/chatwidget/internal/config"
	"github.com/zhouzirui/chatwidget/internal/model/chat"
)

var (
	ErrSessionCreate     = errors.New("session creation failed")
	ErrMessageSend       = errors.New("message send failed")
	ErrMalformedResponse = errors.New("malformed response")
)

// DefaultErrorText 是默认错误处理器展示给用户的提示。
const DefaultErrorText = "Unable to reach support right now. Please try again."

const (
	sessionPath = "/v1/chat/session"
	messagePath = "/v1/chat/message"
)

// Display 渲染一条带角色标签的消息。
type Display interface {
	Display(role chat.Role, text string)
}

// DisplayFunc adapts a plain function to Display.
type DisplayFunc func(role chat.Role, text string)

// Display calls f(role, text).
func (f DisplayFunc) Display(role chat.Role, text string) {
	f(role, text)
}

// Option customises a Client.
type Option func(*Client)

// WithErrorHandler replaces the default error entry with fn. fn receives the
// wrapped error of a failed send.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Client) {
		if fn != nil {
			c.onError = fn
		}
	}
}

// WithHTTPClient routes requests through hc's transport and timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		if hc.Transport != nil {
			c.http.SetTransport(hc.Transport)
		}
		if hc.Timeout > 0 {
			c.http.SetTimeout(hc.Timeout)
		}
	}
}

// Client 代表一个挂件实例：持有唯一的会话 ID，并把用户输入转发给后端。
// 同一实例上的发送按提交顺序串行执行。
type Client struct {
	http     *resty.Client
	display  Display
	onError  func(error)
	channel  chat.Channel
	consent  bool
	fallback string

	// orderMu 保护 tail：每次提交都排在上一次提交之后。
	orderMu sync.Mutex
	tail    chan struct{}

	createMu sync.Mutex

	idMu      sync.RWMutex
	sessionID string
}

// NewClient 根据配置创建挂件客户端。
func NewClient(cfg config.WidgetConfig, display Display, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		base = config.DefaultAPIBase
	}

	channel := chat.Channel(cfg.Channel)
	if channel == "" {
		channel = chat.ChannelWeb
	}

	fallback := cfg.FallbackText
	if fallback == "" {
		fallback = config.DefaultFallbackText
	}

	httpClient := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.RequestTimeout > 0 {
		httpClient.SetTimeout(cfg.RequestTimeout)
	}

	c := &Client{
		http:     httpClient,
		display:  display,
		channel:  channel,
		consent:  cfg.ConsentToContact,
		fallback: fallback,
	}
	c.onError = c.displayError

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the held session id, or "" before one is established.
// It never waits on an in-flight session request.
func (c *Client) SessionID() string {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	return c.sessionID
}

// EnsureSession 在尚未持有会话时向后端申请一个；已持有时直接返回。
// 失败时会话保持未设置，下次调用会重试。
func (c *Client) EnsureSession(ctx context.Context) error {
	if c.SessionID() != "" {
		return nil
	}

	c.createMu.Lock()
	defer c.createMu.Unlock()

	if c.SessionID() != "" {
		return nil
	}

	id, err := c.createSession(ctx)
	if err != nil {
		return err
	}

	c.idMu.Lock()
	c.sessionID = id
	c.idMu.Unlock()

	log.Printf("[widget] session established id=%s channel=%s", id, c.channel)
	return nil
}

// SendMessage 立即展示用户输入，然后确保会话、发送消息并展示回复。
// 空字符串不会产生任何请求或展示。
func (c *Client) SendMessage(ctx context.Context, text string) error {
	return <-c.Submit(ctx, text)
}

// Submit 同步展示用户输入并占据发送队列中的位置，随后在后台完成往返。
// 返回的 channel 只会收到一个结果。多次 Submit 按调用顺序发送和展示。
func (c *Client) Submit(ctx context.Context, text string) <-chan error {
	result := make(chan error, 1)
	if text == "" {
		result <- nil
		return result
	}

	c.orderMu.Lock()
	c.display.Display(chat.RoleUser, text)
	prev := c.tail
	done := make(chan struct{})
	c.tail = done
	c.orderMu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		result <- c.roundTrip(ctx, text)
	}()
	return result
}

func (c *Client) roundTrip(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("%w: %w", ErrMessageSend, err)
		c.report(err)
		return err
	}

	if err := c.EnsureSession(ctx); err != nil {
		c.report(err)
		return err
	}

	reply, err := c.postMessage(ctx, c.SessionID(), text)
	if err != nil {
		c.report(err)
		return err
	}

	if reply == "" {
		reply = c.fallback
	}
	c.display.Display(chat.RoleAgent, reply)
	return nil
}

func (c *Client) createSession(ctx context.Context) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(chat.CreateSessionRequest{Channel: c.channel, ConsentToContact: c.consent}).
		Post(sessionPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionCreate, err)
	}

	if !res.IsSuccess() {
		return "", fmt.Errorf("%w: status %d: %s", ErrSessionCreate, res.StatusCode(), strings.TrimSpace(res.String()))
	}

	// 只读取 session_id，其余字段（created_at 等）格式不受约束。
	var payload struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return "", fmt.Errorf("%w: %w: %w", ErrSessionCreate, ErrMalformedResponse, err)
	}
	if payload.SessionID == "" {
		return "", fmt.Errorf("%w: %w: missing session_id", ErrSessionCreate, ErrMalformedResponse)
	}
	return payload.SessionID, nil
}

func (c *Client) postMessage(ctx context.Context, sessionID, text string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(chat.MessageRequest{SessionID: sessionID, Channel: c.channel, Text: text}).
		Post(messagePath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMessageSend, err)
	}

	if !res.IsSuccess() {
		return "", fmt.Errorf("%w: status %d: %s", ErrMessageSend, res.StatusCode(), strings.TrimSpace(res.String()))
	}

	var payload struct {
		ResponseText string `json:"response_text"`
	}
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return "", fmt.Errorf("%w: %w: %w", ErrMessageSend, ErrMalformedResponse, err)
	}
	return payload.ResponseText, nil
}

func (c *Client) report(err error) {
	log.Printf("[widget] send failed session=%q: %v", c.SessionID(), err)
	c.onError(err)
}

func (c *Client) displayError(error) {
	c.display.Display(chat.RoleError, DefaultErrorText)
}
