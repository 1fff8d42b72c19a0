package models

import (
	"time"

	"github.com/google/uuid"
)

// DateFormat is the wire format of the checkins.date column.
const DateFormat = "2006-01-02"

// Checkin is one employee's status report for one calendar date, correlated
// to an email conversation. Its id is derived from the originating thread id
// (or the first message id), so repeated deliveries of the same conversation
// upsert the same row. Exactly one row exists per (date, employee_id).
type Checkin struct {
	ID              string     `json:"id"`
	Date            string     `json:"date"`
	EmployeeID      uuid.UUID  `json:"employee_id"`
	ThreadID        *string    `json:"thread_id"`
	FirstMessageID  *string    `json:"first_message_id"`
	ReplyReceivedAt *time.Time `json:"reply_received_at"`
}

// Pending reports whether no reply has been recorded yet.
func (c Checkin) Pending() bool {
	return c.ReplyReceivedAt == nil
}
