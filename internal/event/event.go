package event

type Type string

const (
	TypeUserRegistered     Type = "user.registered"
	TypeUserUpdated        Type = "user.updated"
	TypeUserDeleted        Type = "user.deleted"
	TypeUserLoginSucceeded Type = "user.login_succeeded"
	TypeUserLoginFailed    Type = "user.login_failed"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   int64  `json:"actor_id,omitempty"` // Who triggered the event
}

// UserPayload never carries credential material.
type UserPayload struct {
	UserID int64    `json:"user_id,omitempty"`
	Email  string   `json:"email,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
