package chat

import "time"

// Role 标识一条消息的发送方。
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	// RoleError 仅用于展示，不会发送到后端。
	RoleError Role = "error"
)

// Label 返回展示日志中使用的角色前缀。
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAgent:
		return "Agent"
	case RoleError:
		return "Error"
	default:
		return string(r)
	}
}

// Entry 是一次展示用的消息，渲染后即丢弃。
type Entry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// String 渲染为 "You: Hello" 形式。
func (e Entry) String() string {
	return e.Role.Label() + ": " + e.Text
}

// Message persists individual turns for audit/debug.
type Message struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"session_id"`
	Channel    Channel     `json:"channel"`
	Role       Role        `json:"role"`
	Text       string      `json:"text"`
	Intent     string      `json:"intent,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Escalated  bool        `json:"escalated,omitempty"`
	References []Reference `json:"references,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
