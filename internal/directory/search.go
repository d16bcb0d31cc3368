// Package directory holds the organization member roster: search,
// pagination and the add/edit/delete/toggle mutations.
package directory

import (
	"strings"

	"voteflow-backend/internal/models"
)

// Matches reports whether m matches the free-text query. A blank query
// matches every member.
func Matches(m models.Member, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{
		m.Name,
		m.Email,
		m.Position,
		m.Department,
		string(m.Role),
		string(m.Status),
	} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Filter returns the members matching query, preserving order.
func Filter(members []models.Member, query string) []models.Member {
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if Matches(m, query) {
			out = append(out, m)
		}
	}
	return out
}
