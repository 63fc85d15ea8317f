package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/chatwidget/internal/analysis/intent"
	"github.com/zhouzirui/chatwidget/internal/config"
	"github.com/zhouzirui/chatwidget/internal/model/chat"
)

// Service drafts support replies with an eino chain over the Ark model.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	clinic       config.ClinicConfig
	historyLimit int
}

// NewService creates a new AI service instance backed by the configured Ark model.
func NewService(ctx context.Context, cfg config.AIConfig, clinic config.ClinicConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, clinic, cfg.HistoryLimit)
}

// NewServiceWithModel compiles the reply chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, clinic config.ClinicConfig, historyLimit int) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	if historyLimit < 1 {
		historyLimit = 10
	}

	return &Service{
		chain:        runnable,
		clinic:       clinic,
		historyLimit: historyLimit,
	}, nil
}

// GenerateResponse drafts a reply for the query given the session transcript.
func (s *Service) GenerateResponse(ctx context.Context, sessionID string, label intent.Label, history []chat.Message, query string) (string, error) {
	input := map[string]any{
		"system":  s.buildSystemPrompt(label),
		"history": s.buildHistoryMessages(history),
		"query":   query,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	text := strings.TrimSpace(response.Content)
	log.Printf("[ai] generated response for session=%s, intent=%s, length=%d", sessionID, label, len(text))
	return text, nil
}

// buildSystemPrompt 构造前台客服的系统提示词。
func (s *Service) buildSystemPrompt(label intent.Label) string {
	var builder strings.Builder
	builder.WriteString("You are the front-desk assistant for a hearing and balance clinic. ")
	builder.WriteString("Answer briefly and politely. Never give a diagnosis. ")
	builder.WriteString("If you are unsure, offer to collect callback details for staff follow-up.")
	builder.WriteString("\n\nClinic facts:")
	builder.WriteString("\n- Business hours: ")
	builder.WriteString(s.clinic.BusinessHours)
	builder.WriteString("\n- Phone: ")
	builder.WriteString(s.clinic.Phone)
	builder.WriteString("\n- Address: ")
	builder.WriteString(s.clinic.Address)
	builder.WriteString("\n\nDetected intent: ")
	builder.WriteString(string(label))
	return builder.String()
}

func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > s.historyLimit {
		startIdx = len(messages) - s.historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.RoleAgent:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}

	return history
}
