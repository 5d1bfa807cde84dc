package repository

import (
	"context"
	"errors"
	"fmt"

	"donation_tracker/internal/model"

	"github.com/jackc/pgx/v5"
)

// VolunteerRepository defines operations for volunteer profiles
type VolunteerRepository interface {
	Upsert(ctx context.Context, volunteer *model.Volunteer) error
	FindByID(ctx context.Context, id int64) (*model.Volunteer, error)
	FindByUserID(ctx context.Context, userID int64) (*model.Volunteer, error)
	FindAll(ctx context.Context) ([]model.Volunteer, error)
	TopByPoints(ctx context.Context, limit int) ([]model.Volunteer, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type volunteerRepository struct {
	db DB
}

// NewVolunteerRepository creates a new VolunteerRepository
func NewVolunteerRepository(db DB) VolunteerRepository {
	return &volunteerRepository{db: db}
}

const volunteerSelect = `SELECT v.id, v.user_id, v.skills, v.availability, v.points, v.created_at, u.name, u.email
                         FROM volunteers v JOIN users u ON u.id = v.user_id`

// Upsert creates the caller's profile, or refreshes skills and availability
// when one already exists. Points are never touched here.
func (r *volunteerRepository) Upsert(ctx context.Context, v *model.Volunteer) error {
	if v.Skills == nil {
		v.Skills = []string{}
	}
	sql := `INSERT INTO volunteers (user_id, skills, availability)
            VALUES ($1, $2, $3)
            ON CONFLICT (user_id) DO UPDATE SET skills = EXCLUDED.skills, availability = EXCLUDED.availability
            RETURNING id, points, created_at`
	err := r.db.QueryRow(ctx, sql, v.UserID, v.Skills, v.Availability).Scan(&v.ID, &v.Points, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert volunteer: %w", err)
	}
	return nil
}

// FindByID retrieves a volunteer profile, returning nil when absent
func (r *volunteerRepository) FindByID(ctx context.Context, id int64) (*model.Volunteer, error) {
	v, err := scanVolunteer(r.db.QueryRow(ctx, volunteerSelect+` WHERE v.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find volunteer by ID: %w", err)
	}
	return v, nil
}

// FindByUserID retrieves the profile owned by a user, returning nil when absent
func (r *volunteerRepository) FindByUserID(ctx context.Context, userID int64) (*model.Volunteer, error) {
	v, err := scanVolunteer(r.db.QueryRow(ctx, volunteerSelect+` WHERE v.user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find volunteer by user ID: %w", err)
	}
	return v, nil
}

// FindAll lists every volunteer profile
func (r *volunteerRepository) FindAll(ctx context.Context) ([]model.Volunteer, error) {
	return r.list(ctx, volunteerSelect+` ORDER BY v.id`)
}

// TopByPoints returns at most limit volunteers, highest points first
func (r *volunteerRepository) TopByPoints(ctx context.Context, limit int) ([]model.Volunteer, error) {
	return r.list(ctx, volunteerSelect+` ORDER BY v.points DESC, v.id ASC LIMIT $1`, limit)
}

func (r *volunteerRepository) list(ctx context.Context, sql string, args ...any) ([]model.Volunteer, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query volunteers: %w", err)
	}
	defer rows.Close()

	volunteers := []model.Volunteer{}
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan volunteer row: %w", err)
		}
		volunteers = append(volunteers, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volunteer rows: %w", err)
	}
	return volunteers, nil
}

// Delete removes a volunteer profile. Every donation assigned to it is
// unassigned and put back to approved in the same transaction. It returns
// the number of donations released, or ErrNotFound.
func (r *volunteerRepository) Delete(ctx context.Context, id int64) (int64, error) {
	var released int64
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE donations SET assigned_to = NULL, status = $1, updated_at = NOW() WHERE assigned_to = $2`,
			string(model.StatusApproved), id)
		if err != nil {
			return fmt.Errorf("failed to unassign donations: %w", err)
		}
		released = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `DELETE FROM volunteers WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete volunteer: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

func scanVolunteer(row pgx.Row) (*model.Volunteer, error) {
	v := &model.Volunteer{}
	if err := row.Scan(&v.ID, &v.UserID, &v.Skills, &v.Availability, &v.Points, &v.CreatedAt, &v.Name, &v.Email); err != nil {
		return nil, err
	}
	if v.Skills == nil {
		v.Skills = []string{}
	}
	return v, nil
}
