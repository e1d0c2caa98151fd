package domain

// User statuses.
const (
	UserActive   = "active"
	UserInactive = "inactive"
)

// Task statuses.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
)

type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status" enum:"active,inactive"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

func (u User) IsActive() bool {
	return u.Status == UserActive
}

// Task is a unit of work over a closed date range. UserID is nil while
// the task is unassigned.
type Task struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	StartDate Date    `json:"start_date"`
	EndDate   Date    `json:"end_date"`
	Status    string  `json:"status" enum:"pending,in_progress,completed"`
	UserID    *string `json:"user_id"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// ValidUserStatus reports whether s is an accepted user status.
func ValidUserStatus(s string) bool {
	return s == UserActive || s == UserInactive
}

// ValidTaskStatus reports whether s is an accepted task status.
func ValidTaskStatus(s string) bool {
	return s == TaskPending || s == TaskInProgress || s == TaskCompleted
}
