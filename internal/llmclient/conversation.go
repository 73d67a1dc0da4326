package llmclient

// Role identifies the speaker of a Message (spec.md §4.8: "a conversation
// of {role: "user"|"assistant", content} messages").
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a Conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the full turn history sent with every request.
// Streamed chunks are not folded back into it; the tui accumulates them
// in its own Model.
type Conversation []Message

// AppendUser appends a user turn.
func (c Conversation) AppendUser(content string) Conversation {
	return append(c, Message{Role: RoleUser, Content: content})
}

// AppendAssistant appends an assistant turn.
func (c Conversation) AppendAssistant(content string) Conversation {
	return append(c, Message{Role: RoleAssistant, Content: content})
}
