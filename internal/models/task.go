package models

// Task statuses. Anything else reported by an employee is coerced to
// StatusEnProgreso during normalization, never rejected.
const (
	StatusPendiente  = "pendiente"
	StatusEnProgreso = "en_progreso"
	StatusCompletado = "completado"
)

// KnownStatus reports whether s is one of the three recognized statuses.
func KnownStatus(s string) bool {
	switch s {
	case StatusPendiente, StatusEnProgreso, StatusCompletado:
		return true
	}
	return false
}

// Task belongs to exactly one check-in. The task set of a check-in is
// replaced wholesale on every inbound report; TaskOrder preserves the
// reported order because the store does not guarantee read-order stability.
type Task struct {
	ID        int64   `json:"id,omitempty"`
	CheckinID string  `json:"checkin_id"`
	Title     string  `json:"title"`
	Status    string  `json:"status"`
	Progress  *int    `json:"progress"`
	NextSteps *string `json:"next_steps"`
	Blocker   *string `json:"blocker"`
	TaskOrder int     `json:"task_order"`
}

// HasBlocker reports whether the task carries a non-empty blocker note.
func (t Task) HasBlocker() bool {
	return t.Blocker != nil && *t.Blocker != ""
}
