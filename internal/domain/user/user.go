package user

import (
	"database/sql"
	"strings"
)

// Frequency is how often a subscriber wants to receive emails.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// User is a read-only snapshot of a subscriber taken at the start of a run.
type User struct {
	ID        string
	Email     string
	FirstName sql.NullString
	LastName  sql.NullString
	Frequency Frequency
}

// FullName joins first and last name, trimmed. Empty if neither is set.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName.String + " " + u.LastName.String)
}
