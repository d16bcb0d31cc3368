package directory

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/models"
	"voteflow-backend/internal/timeutil"

	"github.com/google/uuid"
)

type Operation string

const (
	OpAdd    Operation = "add"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpToggle Operation = "toggle"
	OpImport Operation = "import"
)

// BusyKey identifies one in-flight mutation. Adds use an empty MemberID.
type BusyKey struct {
	Op       Operation `json:"op"`
	MemberID string    `json:"memberId,omitempty"`
}

// Service applies roster mutations with simulated latency. Each in-flight
// mutation is tracked under its own key; concurrent calls are not blocked.
type Service struct {
	store    Store
	latency  time.Duration
	pageSize int

	mu   sync.Mutex
	busy map[BusyKey]int
}

func NewService(store Store, latency time.Duration, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		store:    store,
		latency:  latency,
		pageSize: pageSize,
		busy:     make(map[BusyKey]int),
	}
}

func (s *Service) track(key BusyKey) func() {
	s.mu.Lock()
	s.busy[key]++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.busy[key]--; s.busy[key] <= 0 {
			delete(s.busy, key)
		}
		s.mu.Unlock()
	}
}

// IsBusy reports whether a mutation for key is in flight.
func (s *Service) IsBusy(op Operation, memberID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy[BusyKey{Op: op, MemberID: memberID}] > 0
}

// Busy lists every in-flight mutation.
func (s *Service) Busy() []BusyKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BusyKey, 0, len(s.busy))
	for k := range s.busy {
		out = append(out, k)
	}
	return out
}

// List renders view against the current roster.
func (s *Service) List(ctx context.Context, v View) (Page[models.Member], error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return Page[models.Member]{}, fmt.Errorf("list members: %w", err)
	}
	return Paginate(Filter(all, v.Query), v.Page, s.pageSize), nil
}

func validate(in models.MemberInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Role) == "" {
		return ErrInvalidMember
	}
	return nil
}

// Add creates a member from the add-member form.
func (s *Service) Add(ctx context.Context, in models.MemberInput) (models.Member, error) {
	if err := validate(in); err != nil {
		return models.Member{}, err
	}
	defer s.track(BusyKey{Op: OpAdd})()

	if err := timeutil.Simulate(ctx, s.latency); err != nil {
		return models.Member{}, err
	}

	m := models.Member{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		Role:       models.ParseRole(in.Role),
		Status:     models.ParseMemberStatus(in.Status),
		JoinedAt:   timeutil.Now(),
		Phone:      in.Phone,
		Position:   in.Position,
		Department: in.Department,
	}
	m.Avatar = avatarURL(m.Name)
	if err := s.store.Create(ctx, m); err != nil {
		return models.Member{}, fmt.Errorf("create member: %w", err)
	}
	logger.For("directory").WithField("member", m.ID).Info("[Members] Added")
	return m, nil
}

// Update applies the edit form to an existing member.
func (s *Service) Update(ctx context.Context, id string, in models.MemberInput) (models.Member, error) {
	if err := validate(in); err != nil {
		return models.Member{}, err
	}
	defer s.track(BusyKey{Op: OpUpdate, MemberID: id})()

	if err := timeutil.Simulate(ctx, s.latency); err != nil {
		return models.Member{}, err
	}

	m, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Member{}, err
	}
	m.Name = strings.TrimSpace(in.Name)
	m.Email = strings.TrimSpace(in.Email)
	m.Role = models.ParseRole(in.Role)
	if in.Status != "" {
		m.Status = models.ParseMemberStatus(in.Status)
	}
	m.Phone = in.Phone
	m.Position = in.Position
	m.Department = in.Department

	if err := s.store.Update(ctx, m); err != nil {
		return models.Member{}, fmt.Errorf("update member: %w", err)
	}
	return m, nil
}

// Delete removes a member.
func (s *Service) Delete(ctx context.Context, id string) error {
	defer s.track(BusyKey{Op: OpDelete, MemberID: id})()

	if err := timeutil.Simulate(ctx, s.latency); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	logger.For("directory").WithField("member", id).Info("[Members] Deleted")
	return nil
}

// ToggleStatus flips a member between active and inactive.
func (s *Service) ToggleStatus(ctx context.Context, id string) (models.Member, error) {
	defer s.track(BusyKey{Op: OpToggle, MemberID: id})()

	if err := timeutil.Simulate(ctx, s.latency); err != nil {
		return models.Member{}, err
	}
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Member{}, err
	}
	m.Status = m.Status.Toggle()
	if err := s.store.Update(ctx, m); err != nil {
		return models.Member{}, fmt.Errorf("toggle member: %w", err)
	}
	return m, nil
}

// ImportMembers adds bulk-imported rows to the roster.
func (s *Service) ImportMembers(ctx context.Context, rows []models.CSVMember) error {
	defer s.track(BusyKey{Op: OpImport})()

	now := timeutil.Now()
	for _, r := range rows {
		m := models.Member{
			ID:         uuid.NewString(),
			MemberID:   r.MemberID,
			Name:       r.Name,
			Email:      r.Email,
			Role:       r.Role,
			Status:     r.Status,
			JoinedAt:   now,
			Avatar:     avatarURL(r.Name),
			Phone:      r.Phone,
			Position:   r.Position,
			Department: r.Department,
		}
		if err := s.store.Create(ctx, m); err != nil {
			return fmt.Errorf("import member %s: %w", r.Email, err)
		}
	}
	return nil
}

func avatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
