package chat

import (
	"errors"
	"log"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chatwidget/internal/model/chat"
	"github.com/zhouzirui/chatwidget/internal/service/agent"
	chatService "github.com/zhouzirui/chatwidget/internal/service/chat"
	"github.com/zhouzirui/chatwidget/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	agent   *agent.Orchestrator
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, orchestrator *agent.Orchestrator) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		agent:   orchestrator,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Post("/message", h.handleMessage)
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	payload := chat.CreateSessionRequest{Channel: chat.ChannelWeb}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload)
	if err != nil {
		if errors.Is(err, chatService.ErrInvalidChannel) {
			utils.RespondError(w, http.StatusUnprocessableEntity, "channel must be one of web, sms, voice")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[chat] session created id=%s channel=%s", session.ID, session.Channel)
	utils.RespondJSON(w, http.StatusOK, chat.SessionResponse{
		SessionID:        session.ID,
		Channel:          session.Channel,
		ConsentToContact: session.ConsentToContact,
		CreatedAt:        session.CreatedAt,
	})
}

// handleMessage 保存用户消息，运行编排并返回客服回复
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	payload := chat.MessageRequest{Channel: chat.ChannelWeb}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validateMessage(payload); msg != "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	ctx := r.Context()
	session, err := h.chatSvc.GetSession(ctx, payload.SessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	if payload.ConsentToContact != nil {
		if session, err = h.chatSvc.UpdateConsent(ctx, session.ID, *payload.ConsentToContact); err != nil {
			utils.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
	}

	history, err := h.chatSvc.LoadTranscript(ctx, session.ID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	userMsg := chat.Message{
		SessionID: session.ID,
		Channel:   payload.Channel,
		Role:      chat.RoleUser,
		Text:      payload.Text,
	}
	if err := h.chatSvc.SaveMessage(ctx, userMsg); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := h.agent.Run(ctx, session.ID, payload.Channel, history, payload.Text)

	assistantMsg := chat.Message{
		SessionID:  session.ID,
		Channel:    payload.Channel,
		Role:       chat.RoleAgent,
		Text:       result.ResponseText,
		Intent:     string(result.Intent),
		Confidence: result.Confidence,
		Escalated:  result.Escalated,
		References: result.References,
	}
	if err := h.chatSvc.SaveMessage(ctx, assistantMsg); err != nil {
		log.Printf("[chat] failed to save assistant message: %v", err)
	}

	utils.RespondJSON(w, http.StatusOK, chat.MessageResponse{
		SessionID:    session.ID,
		Channel:      payload.Channel,
		Intent:       string(result.Intent),
		Confidence:   result.Confidence,
		Escalated:    result.Escalated,
		ResponseText: result.ResponseText,
		References:   result.References,
	})
}

func validateMessage(payload chat.MessageRequest) string {
	if payload.SessionID == "" {
		return "session_id is required"
	}
	if !payload.Channel.Valid() {
		return "channel must be one of web, sms, voice"
	}
	n := utf8.RuneCountInString(payload.Text)
	if n == 0 {
		return "text is required"
	}
	if n > chat.MaxTextLength {
		return "text exceeds 4000 characters"
	}
	return ""
}
