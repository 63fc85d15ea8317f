package chat

import "time"

// Channel 标识会话来源。
type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelSMS   Channel = "sms"
	ChannelVoice Channel = "voice"
)

// MaxTextLength bounds a single inbound message.
const MaxTextLength = 4000

// Valid reports whether the channel is one the backend accepts.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelSMS, ChannelVoice:
		return true
	default:
		return false
	}
}

// CreateSessionRequest is the body of POST /v1/chat/session.
type CreateSessionRequest struct {
	Channel          Channel `json:"channel"`
	ConsentToContact bool    `json:"consent_to_contact"`
	PhoneNumber      string  `json:"phone_number,omitempty"`
}

// SessionResponse is returned by POST /v1/chat/session.
type SessionResponse struct {
	SessionID        string    `json:"session_id"`
	Channel          Channel   `json:"channel,omitempty"`
	ConsentToContact bool      `json:"consent_to_contact"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
}

// MessageRequest is the body of POST /v1/chat/message.
type MessageRequest struct {
	SessionID        string  `json:"session_id"`
	Channel          Channel `json:"channel"`
	Text             string  `json:"text"`
	ConsentToContact *bool   `json:"consent_to_contact,omitempty"`
}

// Reference points at a knowledge source used for a reply.
type Reference struct {
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
}

// MessageResponse is returned by POST /v1/chat/message. Only ResponseText is
// read by the widget; it may be absent.
type MessageResponse struct {
	SessionID    string      `json:"session_id,omitempty"`
	Channel      Channel     `json:"channel,omitempty"`
	Intent       string      `json:"intent,omitempty"`
	Confidence   float64     `json:"confidence"`
	Escalated    bool        `json:"escalated"`
	ResponseText string      `json:"response_text,omitempty"`
	References   []Reference `json:"references"`
}
