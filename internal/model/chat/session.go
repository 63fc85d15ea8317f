package chat

import "time"

// Session captures one backend conversation.
type Session struct {
	ID               string    `json:"session_id"`
	Channel          Channel   `json:"channel"`
	ConsentToContact bool      `json:"consent_to_contact"`
	PhoneHash        string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}
