package models

import "time"

// SessionMode toggles between Socratic question-driving and free-form
// direct chat.
type SessionMode string

const (
	ModeSocratic   SessionMode = "socratic"
	ModeDirectChat SessionMode = "direct_chat"
)

// SessionStatus is the lifecycle status of a Session.
type SessionStatus string

// Session statuses. Ended is terminal and immutable.
const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusPaused SessionStatus = "paused"
	SessionStatusEnded  SessionStatus = "ended"
)

// Session belongs to a Project and a User. It exclusively owns its
// ConversationHistory and Questions.
type Session struct {
	ID        string
	ProjectID string
	UserID    string
	Mode      SessionMode
	Status    SessionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationRole identifies the speaker of a ConversationHistory entry.
type ConversationRole string

const (
	ConversationRoleUser      ConversationRole = "user"
	ConversationRoleAssistant ConversationRole = "assistant"
	ConversationRoleSystem    ConversationRole = "system"
)

// ConversationEntry is one turn in a session's history. Ordering is
// total and strictly monotonic by insert time;
// Sequence enforces that ordering independent of clock resolution.
type ConversationEntry struct {
	ID        string
	SessionID string
	Sequence  int64
	Role      ConversationRole
	Content   string
	CreatedAt time.Time
}

// Question belongs to a Session. GenModel/BiasScore record the
// generation metadata used by the Quality engine's post-validation pass.
type Question struct {
	ID        string
	SessionID string
	Text      string
	Category  string
	Role      string // optional professional role the question is framed from
	BiasScore float64
	GenModel  string
	CreatedAt time.Time
}
