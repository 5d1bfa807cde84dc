package model

import (
	"math"
	"slices"
	"time"
)

const (
	DonationTypeClothes = "clothes"
	DonationTypeBooks   = "books"
	DonationTypeFood    = "food"
	DonationTypeMoney   = "money"
	DonationTypeOthers  = "others"
)

// DonationTypes lists every accepted donation type
var DonationTypes = []string{
	DonationTypeClothes,
	DonationTypeBooks,
	DonationTypeFood,
	DonationTypeMoney,
	DonationTypeOthers,
}

// MaxAmount bounds quantity and points to the INTEGER column range
const MaxAmount = math.MaxInt32

// IsValidDonationType reports whether t is one of DonationTypes
func IsValidDonationType(t string) bool {
	return slices.Contains(DonationTypes, t)
}

// DonationStatus is a step in the donation lifecycle
type DonationStatus string

const (
	StatusPending         DonationStatus = "pending"
	StatusApproved        DonationStatus = "approved"
	StatusAssigned        DonationStatus = "assigned"
	StatusCompleted       DonationStatus = "completed"
	StatusApprovedByAdmin DonationStatus = "approvedByAdmin"
)

// nextStatus holds the only forward edge out of each status.
// approvedByAdmin is terminal.
var nextStatus = map[DonationStatus]DonationStatus{
	StatusPending:   StatusApproved,
	StatusApproved:  StatusAssigned,
	StatusAssigned:  StatusCompleted,
	StatusCompleted: StatusApprovedByAdmin,
}

// CanTransition reports whether a donation may move from one status to another
func CanTransition(from, to DonationStatus) bool {
	next, ok := nextStatus[from]
	return ok && next == to
}

// DonorSummary is the subset of the donor's account shown alongside a donation
type DonorSummary struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone,omitempty"`
	Location *string `json:"location,omitempty"`
}

// AssigneeSummary identifies the volunteer a donation is assigned to
type AssigneeSummary struct {
	VolunteerID int64  `json:"volunteer_id"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

// Donation is the workflow subject tracked from pledge to approved delivery
type Donation struct {
	ID              int64          `json:"id"`
	Type            string         `json:"type"`
	Quantity        int            `json:"quantity"`
	Status          DonationStatus `json:"status"`
	DonorID         int64          `json:"donor_id"`
	AssignedTo      *int64         `json:"assigned_to,omitempty"`
	CompletionProof string         `json:"completion_proof,omitempty"`
	PointsAwarded   int            `json:"points_awarded"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	Donor    *DonorSummary    `json:"donor,omitempty"`
	Assignee *AssigneeSummary `json:"assignee,omitempty"`
}

// CreateDonationRequest is used for creating a new donation
type CreateDonationRequest struct {
	Type     string `json:"type" binding:"required,oneof=clothes books food money others"`
	Quantity int    `json:"quantity" binding:"required,gt=0,lte=2147483647"`
}

// AssignVolunteerRequest binds a volunteer to an approved donation
type AssignVolunteerRequest struct {
	VolunteerID int64 `json:"volunteerId" binding:"required"`
}

// CompleteDonationRequest carries the volunteer's proof of delivery
type CompleteDonationRequest struct {
	CompletionProof string `json:"completionProof"`
}

// ApproveCompletionRequest carries the points awarded to the volunteer
type ApproveCompletionRequest struct {
	Points *int `json:"points" binding:"omitempty,gte=0,lte=2147483647"`
}
