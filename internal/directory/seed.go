package directory

import (
	"time"

	"voteflow-backend/internal/models"
)

// SeedMembers is the demo roster shown before a real backend is wired.
func SeedMembers() []models.Member {
	joined := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	members := []models.Member{
		{ID: "1", Name: "John Smith", Email: "john.smith@school.edu", Role: models.RoleAdmin, Status: models.StatusActive, JoinedAt: joined(2024, 1, 15), Phone: "+1 555 0101", Position: "Principal", Department: "Administration"},
		{ID: "2", Name: "Sarah Johnson", Email: "sarah.j@school.edu", Role: models.RoleVoter, Status: models.StatusActive, JoinedAt: joined(2024, 2, 3), Phone: "+1 555 0102", Position: "Senior Teacher", Department: "Mathematics"},
		{ID: "3", Name: "Michael Brown", Email: "m.brown@school.edu", Role: models.RoleVoter, Status: models.StatusActive, JoinedAt: joined(2024, 2, 20), Phone: "+1 555 0103", Position: "Teacher", Department: "Science"},
		{ID: "4", Name: "Emily Davis", Email: "emily.davis@school.edu", Role: models.RoleVoter, Status: models.StatusInactive, JoinedAt: joined(2024, 3, 8), Phone: "+1 555 0104", Position: "Student", Department: "Grade 12"},
		{ID: "5", Name: "David Wilson", Email: "d.wilson@school.edu", Role: models.RoleAdmin, Status: models.StatusActive, JoinedAt: joined(2024, 3, 22), Phone: "+1 555 0105", Position: "Vice Principal", Department: "Administration"},
		{ID: "6", Name: "Lisa Anderson", Email: "lisa.a@school.edu", Role: models.RoleVoter, Status: models.StatusActive, JoinedAt: joined(2024, 4, 1), Phone: "+1 555 0106", Position: "Teacher", Department: "English"},
		{ID: "7", Name: "James Taylor", Email: "j.taylor@school.edu", Role: models.RoleVoter, Status: models.StatusActive, JoinedAt: joined(2024, 4, 18), Phone: "+1 555 0107", Position: "Student", Department: "Grade 11"},
	}
	for i := range members {
		members[i].Avatar = avatarURL(members[i].Name)
	}
	return members
}
