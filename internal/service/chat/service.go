package chat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/chatwidget/internal/model/chat"
)

var (
	ErrInvalidChannel  = errors.New("invalid channel")
	ErrSessionNotFound = errors.New("session not found")
)

// Stats 汇总内存中的会话数据，供 /v1/metrics 使用。
type Stats struct {
	SessionsTotal    int `json:"sessions_total"`
	MessagesTotal    int `json:"messages_total"`
	EscalationsTotal int `json:"escalations_total"`
}

// Service encapsulates conversation state management.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewService bootstraps the in-memory chat service.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

// CreateSession provisions a session for the given channel. Phone numbers are
// only kept as a SHA-256 digest.
func (s *Service) CreateSession(_ context.Context, req chat.CreateSessionRequest) (chat.Session, error) {
	channel := req.Channel
	if channel == "" {
		channel = chat.ChannelWeb
	}
	if !channel.Valid() {
		return chat.Session{}, ErrInvalidChannel
	}

	session := chat.Session{
		ID:               uuid.NewString(),
		Channel:          channel,
		ConsentToContact: req.ConsentToContact,
		CreatedAt:        time.Now().UTC(),
	}
	if req.PhoneNumber != "" {
		session.PhoneHash = HashPhone(req.PhoneNumber)
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// HashPhone returns the hex SHA-256 digest of a phone number.
func HashPhone(phone string) string {
	sum := sha256.Sum256([]byte(phone))
	return hex.EncodeToString(sum[:])
}

// UpdateConsent records a new contact-consent decision for the session.
func (s *Service) UpdateConsent(_ context.Context, sessionID string, consent bool) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	session.ConsentToContact = consent
	s.sessions[sessionID] = session
	return session, nil
}

// SaveMessage appends a message to the session history.
func (s *Service) SaveMessage(_ context.Context, message chat.Message) error {
	if message.SessionID == "" {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	return nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Stats counts sessions, messages and escalated agent turns.
func (s *Service) Stats(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{SessionsTotal: len(s.sessions)}
	for _, messages := range s.messages {
		stats.MessagesTotal += len(messages)
		for _, m := range messages {
			if m.Escalated {
				stats.EscalationsTotal++
			}
		}
	}
	return stats
}
