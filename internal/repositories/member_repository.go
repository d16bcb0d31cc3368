package repositories

import (
	"context"
	"errors"

	"voteflow-backend/internal/directory"
	"voteflow-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemberRepository is the Postgres-backed directory.Store.
type MemberRepository struct {
	DB *pgxpool.Pool
}

func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{DB: db}
}

var _ directory.Store = (*MemberRepository)(nil)

const memberColumns = `id, member_id, name, email, role, status, joined_at, avatar, phone, position, department`

func scanMember(row pgx.Row) (models.Member, error) {
	var m models.Member
	var role, status string
	err := row.Scan(&m.ID, &m.MemberID, &m.Name, &m.Email, &role, &status, &m.JoinedAt,
		&m.Avatar, &m.Phone, &m.Position, &m.Department)
	m.Role = models.Role(role)
	m.Status = models.MemberStatus(status)
	return m, err
}

// List returns members in insertion order.
func (r *MemberRepository) List(ctx context.Context) ([]models.Member, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+memberColumns+` FROM members ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepository) Get(ctx context.Context, id string) (models.Member, error) {
	m, err := scanMember(r.DB.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Member{}, directory.ErrMemberNotFound
	}
	return m, err
}

func (r *MemberRepository) Create(ctx context.Context, m models.Member) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO members(id, member_id, name, email, role, status, joined_at, avatar, phone, position, department)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.MemberID, m.Name, m.Email, string(m.Role), string(m.Status), m.JoinedAt,
		m.Avatar, m.Phone, m.Position, m.Department)
	return err
}

func (r *MemberRepository) Update(ctx context.Context, m models.Member) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE members SET name=$1, email=$2, role=$3, status=$4, phone=$5, position=$6, department=$7
		 WHERE id=$8`,
		m.Name, m.Email, string(m.Role), string(m.Status), m.Phone, m.Position, m.Department, m.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM members WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrMemberNotFound
	}
	return nil
}

// Count is used to decide whether the demo roster should be seeded.
func (r *MemberRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&n)
	return n, err
}
