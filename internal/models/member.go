package models

import "time"

// Member is one row of an organization's roster.
type Member struct {
	ID         string       `json:"id"`
	MemberID   string       `json:"memberId,omitempty"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Role       Role         `json:"role"`
	Status     MemberStatus `json:"status"`
	JoinedAt   time.Time    `json:"joinedAt"`
	Avatar     string       `json:"avatar,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	Position   string       `json:"position,omitempty"`
	Department string       `json:"department,omitempty"`
}

// MemberInput is the add/edit form payload.
type MemberInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Status     string `json:"status,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Position   string `json:"position,omitempty"`
	Department string `json:"department,omitempty"`
}

// CSVMember is a validated row parsed from a bulk-import file.
type CSVMember struct {
	MemberID   string       `json:"member_id"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Role       Role         `json:"role"`
	Phone      string       `json:"phone"`
	Position   string       `json:"position"`
	Department string       `json:"department"`
	Status     MemberStatus `json:"status"`
}

// ImportResult summarises one bulk import.
type ImportResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}
