package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"donation_tracker/internal/model"
	"donation_tracker/internal/policy"
	"donation_tracker/internal/repository"

	"github.com/rs/zerolog"
)

// DefaultLeaderboardSize is how many volunteers the leaderboard shows
const DefaultLeaderboardSize = 5

// VolunteerService manages volunteer profiles and the points leaderboard
type VolunteerService interface {
	RegisterVolunteer(ctx context.Context, caller Caller, req model.RegisterVolunteerRequest) (*model.Volunteer, error)
	ListVolunteers(ctx context.Context, caller Caller) ([]model.Volunteer, error)
	GetAssignedDonations(ctx context.Context, caller Caller) ([]model.Donation, error)
	DeleteVolunteer(ctx context.Context, caller Caller, volunteerID int64) error
	Leaderboard(ctx context.Context, caller Caller) ([]model.Volunteer, error)
}

type volunteerService struct {
	volunteers      repository.VolunteerRepository
	donations       repository.DonationRepository
	policy          *policy.Policy
	leaderboardSize int
	log             zerolog.Logger
}

// NewVolunteerService creates a new VolunteerService. A non-positive
// leaderboardSize falls back to DefaultLeaderboardSize.
func NewVolunteerService(volunteers repository.VolunteerRepository, donations repository.DonationRepository, p *policy.Policy, leaderboardSize int, log zerolog.Logger) VolunteerService {
	if leaderboardSize <= 0 {
		leaderboardSize = DefaultLeaderboardSize
	}
	return &volunteerService{
		volunteers:      volunteers,
		donations:       donations,
		policy:          p,
		leaderboardSize: leaderboardSize,
		log:             log.With().Str("component", "volunteers").Logger(),
	}
}

// RegisterVolunteer creates the caller's profile or updates the existing one
func (s *volunteerService) RegisterVolunteer(ctx context.Context, caller Caller, req model.RegisterVolunteerRequest) (*model.Volunteer, error) {
	if !s.policy.Can(caller.Role, policy.ActionRegisterVolunteer) {
		return nil, roleError("not allowed to register as a volunteer")
	}
	skills := make([]string, 0, len(req.Skills))
	for _, skill := range req.Skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			skills = append(skills, skill)
		}
	}

	volunteer := &model.Volunteer{
		UserID:       caller.UserID,
		Skills:       skills,
		Availability: strings.TrimSpace(req.Availability),
	}
	if err := s.volunteers.Upsert(ctx, volunteer); err != nil {
		return nil, fmt.Errorf("failed to register volunteer: %w", err)
	}
	s.log.Info().Int64("volunteer_id", volunteer.ID).Int64("user_id", caller.UserID).Msg("volunteer registered")

	stored, err := s.volunteers.FindByID(ctx, volunteer.ID)
	if err != nil || stored == nil {
		// The write succeeded; fall back to what was written
		s.log.Warn().Err(err).Int64("volunteer_id", volunteer.ID).Msg("failed to read back registered volunteer")
		return volunteer, nil
	}
	return stored, nil
}

func (s *volunteerService) ListVolunteers(ctx context.Context, caller Caller) ([]model.Volunteer, error) {
	if !s.policy.Can(caller.Role, policy.ActionListVolunteers) {
		return nil, roleError("only admins can view all volunteers")
	}
	volunteers, err := s.volunteers.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list volunteers: %w", err)
	}
	return volunteers, nil
}

// GetAssignedDonations lists the caller's tasks. Unlike the donations
// listing it reports a missing profile as not found.
func (s *volunteerService) GetAssignedDonations(ctx context.Context, caller Caller) ([]model.Donation, error) {
	if !s.policy.Can(caller.Role, policy.ActionListAssigned) {
		return nil, roleError("only volunteers can view assigned donations")
	}
	volunteer, err := s.volunteers.FindByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find volunteer profile: %w", err)
	}
	if volunteer == nil {
		return nil, ErrVolunteerNotFound
	}
	donations, err := s.donations.FindAll(ctx, repository.DonationFilters{AssignedTo: &volunteer.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list volunteer donations: %w", err)
	}
	return donations, nil
}

// DeleteVolunteer removes a profile and puts its donations back to approved
func (s *volunteerService) DeleteVolunteer(ctx context.Context, caller Caller, volunteerID int64) error {
	if !s.policy.Can(caller.Role, policy.ActionDeleteVolunteer) {
		return roleError("only admins can delete volunteers")
	}
	released, err := s.volunteers.Delete(ctx, volunteerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVolunteerNotFound
		}
		return fmt.Errorf("failed to delete volunteer: %w", err)
	}
	s.log.Info().Int64("volunteer_id", volunteerID).Int64("donations_released", released).Msg("volunteer deleted")
	return nil
}

func (s *volunteerService) Leaderboard(ctx context.Context, caller Caller) ([]model.Volunteer, error) {
	if !s.policy.Can(caller.Role, policy.ActionViewLeaderboard) {
		return nil, roleError("not allowed to view the leaderboard")
	}
	top, err := s.volunteers.TopByPoints(ctx, s.leaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return top, nil
}
