package service

import (
	"context"
	"fmt"
	"time"

	"donation_tracker/internal/model"
	"donation_tracker/internal/policy"
	"donation_tracker/internal/repository"

	"github.com/rs/zerolog"
)

// Caller is the authenticated identity a request acts as
type Caller struct {
	UserID int64
	Role   string
}

// DonationService drives a donation through its lifecycle:
// pending -> approved -> assigned -> completed -> approvedByAdmin.
type DonationService interface {
	CreateDonation(ctx context.Context, caller Caller, req model.CreateDonationRequest) (*model.Donation, error)
	ListAllDonations(ctx context.Context, caller Caller) ([]model.Donation, error)
	ListMyDonations(ctx context.Context, caller Caller) ([]model.Donation, error)
	ListAssignedDonations(ctx context.Context, caller Caller) ([]model.Donation, error)
	GetDonation(ctx context.Context, caller Caller, donationID int64) (*model.Donation, error)
	ApproveDonation(ctx context.Context, caller Caller, donationID int64) (*model.Donation, error)
	AssignVolunteer(ctx context.Context, caller Caller, donationID, volunteerID int64) (*model.Donation, error)
	MarkCompleted(ctx context.Context, caller Caller, donationID int64, proof string) (*model.Donation, error)
	ApproveCompletion(ctx context.Context, caller Caller, donationID int64, points *int) (*model.Donation, error)
	DeleteDonation(ctx context.Context, caller Caller, donationID int64) error
}

type donationService struct {
	donations  repository.DonationRepository
	volunteers repository.VolunteerRepository
	policy     *policy.Policy
	log        zerolog.Logger
}

// NewDonationService creates a new DonationService
func NewDonationService(donations repository.DonationRepository, volunteers repository.VolunteerRepository, p *policy.Policy, log zerolog.Logger) DonationService {
	return &donationService{
		donations:  donations,
		volunteers: volunteers,
		policy:     p,
		log:        log.With().Str("component", "donations").Logger(),
	}
}

func (s *donationService) CreateDonation(ctx context.Context, caller Caller, req model.CreateDonationRequest) (*model.Donation, error) {
	if !s.policy.Can(caller.Role, policy.ActionCreateDonation) {
		return nil, roleError("only donors can create donations")
	}
	if req.Type == "" || req.Quantity == 0 {
		return nil, fmt.Errorf("%w: type and quantity are required", ErrValidation)
	}
	if !model.IsValidDonationType(req.Type) {
		return nil, fmt.Errorf("%w: type must be one of clothes, books, food, money, others", ErrValidation)
	}
	if req.Quantity < 0 || req.Quantity > model.MaxAmount {
		return nil, fmt.Errorf("%w: quantity must be a positive number no greater than %d", ErrValidation, model.MaxAmount)
	}

	now := time.Now()
	donation := &model.Donation{
		Type:      req.Type,
		Quantity:  req.Quantity,
		Status:    model.StatusPending,
		DonorID:   caller.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.donations.Create(ctx, donation); err != nil {
		return nil, fmt.Errorf("failed to create donation in repo: %w", err)
	}
	s.log.Info().Int64("donation_id", donation.ID).Int64("donor_id", caller.UserID).Msg("donation created")
	return donation, nil
}

func (s *donationService) ListAllDonations(ctx context.Context, caller Caller) ([]model.Donation, error) {
	if !s.policy.Can(caller.Role, policy.ActionListAllDonations) {
		return nil, roleError("only admins can view all donations")
	}
	donations, err := s.donations.FindAll(ctx, repository.DonationFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	return donations, nil
}

func (s *donationService) ListMyDonations(ctx context.Context, caller Caller) ([]model.Donation, error) {
	if !s.policy.Can(caller.Role, policy.ActionListOwnDonations) {
		return nil, roleError("only donors can view their donations")
	}
	donations, err := s.donations.FindAll(ctx, repository.DonationFilters{DonorID: &caller.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to list donor donations: %w", err)
	}
	return donations, nil
}

func (s *donationService) ListAssignedDonations(ctx context.Context, caller Caller) ([]model.Donation, error) {
	if !s.policy.Can(caller.Role, policy.ActionListAssigned) {
		return nil, roleError("only volunteers can view assigned donations")
	}
	volunteer, err := s.volunteers.FindByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find caller's volunteer profile: %w", err)
	}
	if volunteer == nil {
		return []model.Donation{}, nil
	}
	donations, err := s.donations.FindAll(ctx, repository.DonationFilters{AssignedTo: &volunteer.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned donations: %w", err)
	}
	return donations, nil
}

// isAssignee reports whether the caller's volunteer profile is the donation's assignee
func (s *donationService) isAssignee(ctx context.Context, caller Caller, d *model.Donation) (bool, *model.Volunteer, error) {
	if d.AssignedTo == nil {
		return false, nil, nil
	}
	volunteer, err := s.volunteers.FindByUserID(ctx, caller.UserID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to find caller's volunteer profile: %w", err)
	}
	if volunteer == nil {
		return false, nil, nil
	}
	return volunteer.ID == *d.AssignedTo, volunteer, nil
}

func (s *donationService) GetDonation(ctx context.Context, caller Caller, donationID int64) (*model.Donation, error) {
	if !s.policy.Can(caller.Role, policy.ActionViewDonation) {
		return nil, ErrNotDonationViewer
	}
	donation, err := s.find(ctx, donationID)
	if err != nil {
		return nil, err
	}

	if policy.IsAdmin(caller.Role) || donation.DonorID == caller.UserID {
		return donation, nil
	}
	ok, _, err := s.isAssignee(ctx, caller, donation)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotDonationViewer
	}
	return donation, nil
}

func (s *donationService) find(ctx context.Context, donationID int64) (*model.Donation, error) {
	donation, err := s.donations.FindByID(ctx, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find donation by ID: %w", err)
	}
	if donation == nil {
		return nil, ErrDonationNotFound
	}
	return donation, nil
}

// requireStatus fails with a precondition error unless the donation may move to next
func requireStatus(d *model.Donation, next model.DonationStatus, msg string) error {
	if !model.CanTransition(d.Status, next) {
		return preconditionError(msg)
	}
	return nil
}

func (s *donationService) ApproveDonation(ctx context.Context, caller Caller, donationID int64) (*model.Donation, error) {
	if !s.policy.Can(caller.Role, policy.ActionApproveDonation) {
		return nil, roleError("only admins can approve donations")
	}
	donation, err := s.find(ctx, donationID)
	if err != nil {
		return nil, err
	}
	const msg = "only pending donations can be approved"
	if err := requireStatus(donation, model.StatusApproved, msg); err != nil {
		return nil, err
	}

	ok, err := s.donations.UpdateStatus(ctx, donationID, model.StatusPending, model.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to approve donation: %w", err)
	}
	if !ok {
		return nil, preconditionError(msg)
	}
	s.log.Info().Int64("donation_id", donationID).Msg("donation approved")
	return s.find(ctx, donationID)
}

func (s *donationService) AssignVolunteer(ctx context.Context, caller Caller, donationID, volunteerID int64) (*model.Donation, error) {
	if !s.policy.Can(caller.Role, policy.ActionAssignVolunteer) {
		return nil, roleError("only admins can assign volunteers")
	}
	volunteer, err := s.volunteers.FindByID(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find volunteer: %w", err)
	}
	if volunteer == nil {
		return nil, ErrVolunteerNotFound
	}
	donation, err := s.find(ctx, donationID)
	if err != nil {
		return nil, err
	}
	const msg = "donation must be approved first"
	if err := requireStatus(donation, model.StatusAssigned, msg); err != nil {
		return nil, err
	}

	ok, err := s.donations.Assign(ctx, donationID, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign volunteer: %w", err)
	}
	if !ok {
		// Another request moved the donation out of approved first
		return nil, preconditionError(msg)
	}
	s.log.Info().Int64("donation_id", donationID).Int64("volunteer_id", volunteerID).Msg("volunteer assigned")
	return s.find(ctx, donationID)
}

func (s *donationService) MarkCompleted(ctx context.Context, caller Caller, donationID int64, proof string) (*model.Donation, error) {
	if !s.policy.Can(caller.Role, policy.ActionCompleteDonation) {
		return nil, roleError("only volunteers can mark tasks completed")
	}
	donation, err := s.find(ctx, donationID)
	if err != nil {
		return nil, err
	}
	ok, volunteer, err := s.isAssignee(ctx, caller, donation)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAssignee
	}
	const msg = "only assigned donations can be marked completed"
	if err := requireStatus(donation, model.StatusCompleted, msg); err != nil {
		return nil, err
	}

	ok, err = s.donations.MarkCompleted(ctx, donationID, volunteer.ID, proof)
	if err != nil {
		return nil, fmt.Errorf("failed to mark donation completed: %w", err)
	}
	if !ok {
		return nil, preconditionError(msg)
	}
	s.log.Info().Int64("donation_id", donationID).Int64("volunteer_id", volunteer.ID).Msg("donation marked completed")
	return s.find(ctx, donationID)
}

func (s *donationService) ApproveCompletion(ctx context.Context, caller Caller, donationID int64, points *int) (*model.Donation, error) {
	if !s.policy.Can(caller.Role, policy.ActionApproveCompletion) {
		return nil, roleError("only admins can approve completion")
	}
	awarded := 0
	if points != nil {
		awarded = *points
	}
	if awarded < 0 || awarded > model.MaxAmount {
		return nil, fmt.Errorf("%w: points must be between 0 and %d", ErrValidation, model.MaxAmount)
	}
	donation, err := s.find(ctx, donationID)
	if err != nil {
		return nil, err
	}
	const msg = "task not marked completed yet"
	if err := requireStatus(donation, model.StatusApprovedByAdmin, msg); err != nil {
		return nil, err
	}

	ok, err := s.donations.ApproveCompletion(ctx, donationID, awarded)
	if err != nil {
		return nil, fmt.Errorf("failed to approve completion: %w", err)
	}
	if !ok {
		return nil, preconditionError(msg)
	}
	s.log.Info().Int64("donation_id", donationID).Int("points", awarded).Msg("completion approved")
	return s.find(ctx, donationID)
}

func (s *donationService) DeleteDonation(ctx context.Context, caller Caller, donationID int64) error {
	donation, err := s.find(ctx, donationID)
	if err != nil {
		return err
	}

	var ok bool
	switch {
	case s.policy.Can(caller.Role, policy.ActionDeleteAnyDonation):
		ok, err = s.donations.Delete(ctx, donationID, "")
		if err == nil && !ok {
			return ErrDonationNotFound
		}
	case s.policy.Can(caller.Role, policy.ActionDeleteOwnDonation) &&
		donation.DonorID == caller.UserID && donation.Status == model.StatusPending:
		// Fails if the donation left pending since it was read
		ok, err = s.donations.Delete(ctx, donationID, model.StatusPending)
		if err == nil && !ok {
			return ErrCannotDelete
		}
	default:
		return ErrCannotDelete
	}
	if err != nil {
		return fmt.Errorf("failed to delete donation: %w", err)
	}
	s.log.Info().Int64("donation_id", donationID).Int64("deleted_by", caller.UserID).Msg("donation deleted")
	return nil
}
