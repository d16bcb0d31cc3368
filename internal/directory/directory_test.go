package directory

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"voteflow-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSearchPositionOnSeedRoster(t *testing.T) {
	svc := NewService(NewMemoryStore(SeedMembers()...), 0, 5)
	ctx := context.Background()

	view := NewView().WithPage(2)
	page, err := svc.List(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)

	view = view.WithQuery("teacher")
	assert.Equal(t, 1, view.Page)
	page, err = svc.List(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []int{1}, page.PageNumbers)
}

func TestSameQueryKeepsPage(t *testing.T) {
	v := NewView().WithQuery("a").WithPage(3)
	assert.Equal(t, 3, v.WithQuery("a").Page)
	assert.Equal(t, 1, v.WithQuery("b").Page)
}

func TestMatchesFields(t *testing.T) {
	m := models.Member{Name: "Ada Lovelace", Email: "ada@x.com", Position: "Chair", Department: "Maths", Role: models.RoleAdmin, Status: models.StatusInactive}
	for _, q := range []string{"", "   ", "ADA", "x.com", "chair", "MATHS", "admin", "inactive", "love"} {
		assert.True(t, Matches(m, q), q)
	}
	assert.False(t, Matches(m, "voter"))
	assert.False(t, Matches(m, "zzz"))
}

func TestPaginateEdges(t *testing.T) {
	empty := Paginate([]int{}, 3, 5)
	assert.Equal(t, 0, empty.TotalPages)
	assert.Equal(t, 1, empty.Page)
	assert.Empty(t, empty.Items)
	assert.False(t, empty.HasNext)

	p := Paginate([]int{1, 2, 3, 4, 5, 6}, 99, 5)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, []int{6}, p.Items)
	assert.True(t, p.HasPrev)
	assert.False(t, p.HasNext)
}

func TestPaginateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(t, "n")
		size := rapid.IntRange(1, 25).Draw(t, "size")
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}

		total := (n + size - 1) / size
		seen := make(map[int]bool, n)
		for page := 1; page <= total; page++ {
			p := Paginate(items, page, size)
			if p.TotalPages != total {
				t.Fatalf("total pages %d, want %d", p.TotalPages, total)
			}
			if len(p.Items) > size {
				t.Fatalf("page %d has %d items", page, len(p.Items))
			}
			for _, it := range p.Items {
				if seen[it] {
					t.Fatalf("item %d on two pages", it)
				}
				seen[it] = true
			}
		}
		if len(seen) != n {
			t.Fatalf("pages cover %d of %d items", len(seen), n)
		}

		req := rapid.IntRange(-5, total+5).Draw(t, "requested")
		p := Paginate(items, req, size)
		maxPage := total
		if maxPage < 1 {
			maxPage = 1
		}
		if p.Page < 1 || p.Page > maxPage {
			t.Fatalf("page %d outside [1,%d]", p.Page, maxPage)
		}
	})
}

func TestFilterProperty(t *testing.T) {
	words := []string{"alpha", "Beta", "gamma", "", "Teacher", "delta"}
	gen := rapid.SampledFrom(words)
	rapid.Check(t, func(t *rapid.T) {
		m := models.Member{
			Name:       gen.Draw(t, "name"),
			Email:      gen.Draw(t, "email"),
			Position:   gen.Draw(t, "position"),
			Department: gen.Draw(t, "department"),
			Role:       rapid.SampledFrom(models.Roles).Draw(t, "role"),
			Status:     rapid.SampledFrom(models.Statuses).Draw(t, "status"),
		}
		q := rapid.SampledFrom([]string{"", " ", "al", "BET", "teach", "adm", "act", "zz"}).Draw(t, "q")

		want := strings.TrimSpace(q) == ""
		lq := strings.ToLower(strings.TrimSpace(q))
		for _, f := range []string{m.Name, m.Email, m.Position, m.Department, string(m.Role), string(m.Status)} {
			if strings.Contains(strings.ToLower(f), lq) {
				want = true
			}
		}
		got := len(Filter([]models.Member{m}, q)) == 1
		if got != want {
			t.Fatalf("filter(%q) = %v, want %v for %+v", q, got, want, m)
		}
	})
}

func TestMutations(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, 0, 5)
	ctx := context.Background()

	_, err := svc.Add(ctx, models.MemberInput{Name: "  ", Email: "a@x.com", Role: "voter"})
	assert.ErrorIs(t, err, ErrInvalidMember)

	m, err := svc.Add(ctx, models.MemberInput{Name: "Ann", Email: "ann@x.com", Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, m.Role)
	assert.Equal(t, models.StatusActive, m.Status)
	assert.NotEmpty(t, m.ID)

	m, err = svc.ToggleStatus(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, m.Status)

	m, err = svc.Update(ctx, m.ID, models.MemberInput{Name: "Ann B", Email: "ann@x.com", Role: "voter", Department: "Art"})
	require.NoError(t, err)
	assert.Equal(t, "Ann B", m.Name)
	assert.Equal(t, models.RoleVoter, m.Role)
	assert.Equal(t, models.StatusInactive, m.Status)

	require.NoError(t, svc.Delete(ctx, m.ID))
	assert.ErrorIs(t, svc.Delete(ctx, m.ID), ErrMemberNotFound)
	_, err = svc.ToggleStatus(ctx, "nope")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestBusyIsTrackedPerOperation(t *testing.T) {
	svc := NewService(NewMemoryStore(SeedMembers()...), 50*time.Millisecond, 5)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = svc.ToggleStatus(ctx, "1") }()
	go func() { defer wg.Done(); _ = svc.Delete(ctx, "2") }()

	assert.Eventually(t, func() bool {
		return svc.IsBusy(OpToggle, "1") && svc.IsBusy(OpDelete, "2")
	}, time.Second, time.Millisecond)
	assert.False(t, svc.IsBusy(OpToggle, "2"))

	wg.Wait()
	assert.Empty(t, svc.Busy())
}

func TestImportMembersAppendsRows(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, 0, 5)
	err := svc.ImportMembers(context.Background(), []models.CSVMember{
		{MemberID: "S1", Name: "A", Email: "a@x.com", Role: models.RoleVoter, Status: models.StatusActive},
		{MemberID: "S2", Name: "B", Email: "b@x.com", Role: models.RoleAdmin, Status: models.StatusInactive},
	})
	require.NoError(t, err)
	all, _ := store.List(context.Background())
	require.Len(t, all, 2)
	assert.Equal(t, "S2", all[1].MemberID)
}

func TestBadgesCoverEveryValue(t *testing.T) {
	for _, r := range models.Roles {
		assert.NotEqual(t, "gray", r.Badge().Color, r)
	}
	for _, s := range models.Statuses {
		assert.NotEqual(t, "gray", s.Badge().Color, s)
	}
}
