package domain

import "time"

// Message roles. Only these two appear in stored threads.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation thread.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is an append-only message thread, optionally seeded with the
// file uploaded on the request that created it.
type Conversation struct {
	ID          string    `json:"id" db:"id"`
	Messages    []Message `json:"messages"`
	FileName    string    `json:"fileName,omitempty" db:"file_name"`
	FileContent string    `json:"fileContent,omitempty" db:"file_content"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
