package types

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Document is the text of the single PDF loaded into a session.
type Document struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`  // Имя загруженного файла
	Pages    int       `json:"pages"` // Количество страниц
	FullText string    `json:"-"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Message is one entry of the conversation transcript.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Error     bool      `json:"error,omitempty"` // ответ сформирован из ошибки completion service
	CreatedAt time.Time `json:"created_at"`
}

// ScoredChunk is a word window of the document together with its keyword score.
type ScoredChunk struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
	Score   int    `json:"score"`
}

// Turn is the outcome of one question.
type Turn struct {
	Question Message
	Answer   Message
	Sources  []ScoredChunk
}
