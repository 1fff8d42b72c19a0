package models

import (
	"github.com/google/uuid"
)

// Employee is an identity record provisioned by an administrator.
// The core reads it to resolve inbound senders and reminder recipients;
// email is stored normalized (lowercase, trimmed) and unique.
type Employee struct {
	ID     uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// DisplayName prefers the provisioned name and falls back to the email.
func (e Employee) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Email
}
