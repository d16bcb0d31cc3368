package models

import "strings"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleVoter Role = "voter"
)

// ParseRole maps any value other than "admin" (case-insensitive) to voter.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleVoter
}

type MemberStatus string

const (
	StatusActive   MemberStatus = "active"
	StatusInactive MemberStatus = "inactive"
)

// ParseMemberStatus maps any value other than "inactive" (case-insensitive) to active.
func ParseMemberStatus(s string) MemberStatus {
	if strings.EqualFold(strings.TrimSpace(s), string(StatusInactive)) {
		return StatusInactive
	}
	return StatusActive
}

// Toggle returns the opposite status.
func (s MemberStatus) Toggle() MemberStatus {
	if s == StatusActive {
		return StatusInactive
	}
	return StatusActive
}

// Badge is how a role or status is rendered in the SPA tables.
type Badge struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

func (r Role) Badge() Badge {
	switch r {
	case RoleAdmin:
		return Badge{Label: "Admin", Color: "purple"}
	case RoleVoter:
		return Badge{Label: "Voter", Color: "blue"}
	}
	return Badge{Label: string(r), Color: "gray"}
}

func (s MemberStatus) Badge() Badge {
	switch s {
	case StatusActive:
		return Badge{Label: "Active", Color: "green"}
	case StatusInactive:
		return Badge{Label: "Inactive", Color: "red"}
	}
	return Badge{Label: string(s), Color: "gray"}
}

// Roles and Statuses list every enum value; tests use them to check the
// badge tables are exhaustive.
var (
	Roles    = []Role{RoleAdmin, RoleVoter}
	Statuses = []MemberStatus{StatusActive, StatusInactive}
)
