package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"donation_tracker/internal/model"

	"github.com/jackc/pgx/v5"
)

// DonationFilters narrows a donation listing. Nil fields are ignored.
type DonationFilters struct {
	DonorID    *int64
	AssignedTo *int64
}

// DonationRepository defines operations for donation data.
//
// Every status-changing method is a compare-and-set on the current status
// and reports false when the row was missing or no longer in the expected
// status.
type DonationRepository interface {
	Create(ctx context.Context, donation *model.Donation) error
	FindByID(ctx context.Context, id int64) (*model.Donation, error)
	FindAll(ctx context.Context, filters DonationFilters) ([]model.Donation, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.DonationStatus) (bool, error)
	Assign(ctx context.Context, id, volunteerID int64) (bool, error)
	MarkCompleted(ctx context.Context, id, volunteerID int64, proof string) (bool, error)
	ApproveCompletion(ctx context.Context, id int64, points int) (bool, error)
	Delete(ctx context.Context, id int64, requireStatus model.DonationStatus) (bool, error)
}

type donationRepository struct {
	db DB
}

// NewDonationRepository creates a new DonationRepository
func NewDonationRepository(db DB) DonationRepository {
	return &donationRepository{db: db}
}

const donationSelect = `SELECT d.id, d.type, d.quantity, d.status, d.donor_id, d.assigned_to, d.completion_proof,
                               d.points_awarded, d.created_at, d.updated_at,
                               u.name, u.email, u.phone, u.location,
                               v.user_id, vu.name, vu.email
                        FROM donations d
                        JOIN users u ON u.id = d.donor_id
                        LEFT JOIN volunteers v ON v.id = d.assigned_to
                        LEFT JOIN users vu ON vu.id = v.user_id`

// Create inserts a new donation
func (r *donationRepository) Create(ctx context.Context, d *model.Donation) error {
	sql := `INSERT INTO donations (type, quantity, status, donor_id, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRow(ctx, sql, d.Type, d.Quantity, string(d.Status), d.DonorID, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}
	return nil
}

// FindByID retrieves a donation with its donor and assignee, nil when absent
func (r *donationRepository) FindByID(ctx context.Context, id int64) (*model.Donation, error) {
	d, err := scanDonation(r.db.QueryRow(ctx, donationSelect+` WHERE d.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find donation by ID: %w", err)
	}
	return d, nil
}

// FindAll lists donations, newest first
func (r *donationRepository) FindAll(ctx context.Context, filters DonationFilters) ([]model.Donation, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(donationSelect)

	var conditions []string
	var args []any
	if filters.DonorID != nil {
		args = append(args, *filters.DonorID)
		conditions = append(conditions, fmt.Sprintf("d.donor_id = $%d", len(args)))
	}
	if filters.AssignedTo != nil {
		args = append(args, *filters.AssignedTo)
		conditions = append(conditions, fmt.Sprintf("d.assigned_to = $%d", len(args)))
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY d.created_at DESC, d.id DESC")

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	donations := []model.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation row: %w", err)
		}
		donations = append(donations, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donation rows: %w", err)
	}
	return donations, nil
}

// UpdateStatus moves a donation from one status to another
func (r *donationRepository) UpdateStatus(ctx context.Context, id int64, from, to model.DonationStatus) (bool, error) {
	sql := `UPDATE donations SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	tag, err := r.db.Exec(ctx, sql, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update donation status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Assign binds a volunteer to an approved donation
func (r *donationRepository) Assign(ctx context.Context, id, volunteerID int64) (bool, error) {
	sql := `UPDATE donations SET assigned_to = $1, status = $2, updated_at = NOW() WHERE id = $3 AND status = $4`
	tag, err := r.db.Exec(ctx, sql, volunteerID, string(model.StatusAssigned), id, string(model.StatusApproved))
	if err != nil {
		return false, fmt.Errorf("failed to assign volunteer: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCompleted records the assignee's proof and moves the donation to completed
func (r *donationRepository) MarkCompleted(ctx context.Context, id, volunteerID int64, proof string) (bool, error) {
	sql := `UPDATE donations SET status = $1, completion_proof = $2, updated_at = NOW()
            WHERE id = $3 AND status = $4 AND assigned_to = $5`
	tag, err := r.db.Exec(ctx, sql, string(model.StatusCompleted), proof, id, string(model.StatusAssigned), volunteerID)
	if err != nil {
		return false, fmt.Errorf("failed to mark donation completed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ApproveCompletion closes a completed donation and credits the assignee
// with points in a single transaction.
func (r *donationRepository) ApproveCompletion(ctx context.Context, id int64, points int) (bool, error) {
	approved := false
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		var assignedTo *int64
		err := tx.QueryRow(ctx,
			`UPDATE donations SET status = $1, points_awarded = $2, updated_at = NOW()
             WHERE id = $3 AND status = $4 RETURNING assigned_to`,
			string(model.StatusApprovedByAdmin), points, id, string(model.StatusCompleted),
		).Scan(&assignedTo)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to approve completion: %w", err)
		}
		approved = true

		if assignedTo == nil || points == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE volunteers SET points = points + $1 WHERE id = $2`, points, *assignedTo); err != nil {
			return fmt.Errorf("failed to award volunteer points: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return approved, nil
}

// Delete removes a donation. A non-empty requireStatus restricts the delete
// to donations currently in that status.
func (r *donationRepository) Delete(ctx context.Context, id int64, requireStatus model.DonationStatus) (bool, error) {
	sql := `DELETE FROM donations WHERE id = $1`
	args := []any{id}
	if requireStatus != "" {
		sql += ` AND status = $2`
		args = append(args, string(requireStatus))
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete donation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanDonation(row pgx.Row) (*model.Donation, error) {
	d := &model.Donation{}
	donor := &model.DonorSummary{}
	var status string
	var assigneeUserID *int64
	var assigneeName, assigneeEmail *string

	if err := row.Scan(
		&d.ID, &d.Type, &d.Quantity, &status, &d.DonorID, &d.AssignedTo, &d.CompletionProof,
		&d.PointsAwarded, &d.CreatedAt, &d.UpdatedAt,
		&donor.Name, &donor.Email, &donor.Phone, &donor.Location,
		&assigneeUserID, &assigneeName, &assigneeEmail,
	); err != nil {
		return nil, err
	}

	d.Status = model.DonationStatus(status)
	donor.ID = d.DonorID
	d.Donor = donor
	if d.AssignedTo != nil && assigneeUserID != nil {
		d.Assignee = &model.AssigneeSummary{VolunteerID: *d.AssignedTo, UserID: *assigneeUserID}
		if assigneeName != nil {
			d.Assignee.Name = *assigneeName
		}
		if assigneeEmail != nil {
			d.Assignee.Email = *assigneeEmail
		}
	}
	return d, nil
}
