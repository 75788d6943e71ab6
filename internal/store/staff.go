package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ytmanager-backend-go/internal/models"
)

const staffColumns = `id, name, email, password_hash, role, leader_id, status, avatar_url, created_at, updated_at`

func (s *Store) ListStaff(ctx context.Context) ([]models.StaffMember, error) {
	staff := []models.StaffMember{}
	err := s.DB.SelectContext(ctx, &staff, `SELECT `+staffColumns+` FROM staff ORDER BY created_at, id`)
	return staff, err
}

func (s *Store) GetStaff(ctx context.Context, id string) (models.StaffMember, error) {
	var member models.StaffMember
	err := s.DB.GetContext(ctx, &member, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return member, fmt.Errorf("staff %s: %w", id, err)
	}
	return member, err
}

func (s *Store) GetStaffByEmail(ctx context.Context, email string) (models.StaffMember, error) {
	var member models.StaffMember
	err := s.DB.GetContext(ctx, &member, `SELECT `+staffColumns+` FROM staff WHERE lower(email) = lower($1)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return member, fmt.Errorf("staff %s: %w", email, err)
	}
	return member, err
}

func (s *Store) CountStaff(ctx context.Context) (int, error) {
	var n int
	err := s.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM staff`)
	return n, err
}

func (s *Store) CreateStaff(ctx context.Context, member models.StaffMember) error {
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO staff (id, name, email, password_hash, role, leader_id, status, avatar_url, created_at, updated_at)
VALUES (:id, :name, :email, :password_hash, :role, :leader_id, :status, :avatar_url, :created_at, :updated_at)
`, member)
	return err
}

func (s *Store) UpdateStaff(ctx context.Context, member models.StaffMember) error {
	res, err := s.DB.NamedExecContext(ctx, `
UPDATE staff
SET name = :name, email = :email, password_hash = :password_hash, role = :role,
    leader_id = :leader_id, status = :status, avatar_url = :avatar_url, updated_at = :updated_at
WHERE id = :id
`, member)
	if err != nil {
		return err
	}
	return affected(res, "staff", member.ID)
}

func (s *Store) DeleteStaff(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res, "staff", id)
}

func (s *Store) SetStaffPassword(ctx context.Context, id, hash string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE staff SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, time.Now().UTC())
	if err != nil {
		return err
	}
	return affected(res, "staff", id)
}
