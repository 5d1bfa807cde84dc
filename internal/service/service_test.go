package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"donation_tracker/internal/model"
	"donation_tracker/internal/policy"
	"donation_tracker/internal/repository"
	"donation_tracker/internal/repository/memory"
	"donation_tracker/internal/utils"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store      *memory.Store
	auth       AuthService
	donations  DonationService
	volunteers VolunteerService

	admin Caller
	donor Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	p := policy.New()
	log := zerolog.Nop()

	f := &fixture{
		store:      store,
		auth:       NewAuthService(store.Users(), utils.NewJWTUtil("test-secret", 1), log),
		donations:  NewDonationService(store.Donations(), store.Volunteers(), p, log),
		volunteers: NewVolunteerService(store.Volunteers(), store.Donations(), p, DefaultLeaderboardSize, log),
	}
	f.admin = f.newUser(t, "Admin", "admin@gmail.com", model.RoleAdmin)
	f.donor = f.newUser(t, "Asha", "asha@gmail.com", model.RoleDonor)
	return f
}

func (f *fixture) newUser(t *testing.T, name, email, role string) Caller {
	t.Helper()
	u := &model.User{Name: name, Email: email, Role: role}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return Caller{UserID: u.ID, Role: role}
}

// newVolunteer creates a Volunteer user with a registered profile
func (f *fixture) newVolunteer(t *testing.T, name string) (Caller, *model.Volunteer) {
	t.Helper()
	caller := f.newUser(t, name, fmt.Sprintf("%s@gmail.com", name), model.RoleVolunteer)
	v, err := f.volunteers.RegisterVolunteer(context.Background(), caller, model.RegisterVolunteerRequest{Skills: []string{"driving"}, Availability: "weekends"})
	require.NoError(t, err)
	return caller, v
}

func (f *fixture) newDonation(t *testing.T) *model.Donation {
	t.Helper()
	d, err := f.donations.CreateDonation(context.Background(), f.donor, model.CreateDonationRequest{Type: "books", Quantity: 3})
	require.NoError(t, err)
	return d
}

// advance walks a fresh donation up to the given status
func (f *fixture) advance(t *testing.T, to model.DonationStatus, vCaller Caller, v *model.Volunteer) *model.Donation {
	t.Helper()
	ctx := context.Background()
	d := f.newDonation(t)
	var err error
	steps := []struct {
		status model.DonationStatus
		run    func() (*model.Donation, error)
	}{
		{model.StatusApproved, func() (*model.Donation, error) { return f.donations.ApproveDonation(ctx, f.admin, d.ID) }},
		{model.StatusAssigned, func() (*model.Donation, error) { return f.donations.AssignVolunteer(ctx, f.admin, d.ID, v.ID) }},
		{model.StatusCompleted, func() (*model.Donation, error) { return f.donations.MarkCompleted(ctx, vCaller, d.ID, "delivered") }},
		{model.StatusApprovedByAdmin, func() (*model.Donation, error) { return f.donations.ApproveCompletion(ctx, f.admin, d.ID, nil) }},
	}
	for _, step := range steps {
		if d.Status == to {
			break
		}
		d, err = step.run()
		require.NoError(t, err)
		require.Equal(t, step.status, d.Status)
	}
	return d
}

func TestDonationLifecycle_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vCaller, v := f.newVolunteer(t, "Ravi")

	d, err := f.donations.CreateDonation(ctx, f.donor, model.CreateDonationRequest{Type: "books", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, d.Status)
	assert.Equal(t, f.donor.UserID, d.DonorID)

	d, err = f.donations.ApproveDonation(ctx, f.admin, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, d.Status)

	d, err = f.donations.AssignVolunteer(ctx, f.admin, d.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, d.Status)
	require.NotNil(t, d.AssignedTo)
	assert.Equal(t, v.ID, *d.AssignedTo)
	require.NotNil(t, d.Assignee)
	assert.Equal(t, "Ravi", d.Assignee.Name)

	d, err = f.donations.MarkCompleted(ctx, vCaller, d.ID, "delivered")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, d.Status)
	assert.Equal(t, "delivered", d.CompletionProof)

	points := 10
	d, err = f.donations.ApproveCompletion(ctx, f.admin, d.ID, &points)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApprovedByAdmin, d.Status)
	assert.Equal(t, 10, d.PointsAwarded)
	assert.Equal(t, f.donor.UserID, d.DonorID)

	board, err := f.volunteers.Leaderboard(ctx, f.donor)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, 10, board[0].Points)
}

func TestDonationLifecycle_OutOfOrderTransitionsFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vCaller, v := f.newVolunteer(t, "Ravi")

	pending := f.newDonation(t)
	_, err := f.donations.AssignVolunteer(ctx, f.admin, pending.ID, v.ID)
	assert.ErrorIs(t, err, ErrPrecondition)
	_, err = f.donations.ApproveCompletion(ctx, f.admin, pending.ID, nil)
	assert.ErrorIs(t, err, ErrPrecondition)

	approved := f.advance(t, model.StatusApproved, vCaller, v)
	_, err = f.donations.ApproveDonation(ctx, f.admin, approved.ID)
	assert.ErrorIs(t, err, ErrPrecondition)

	assigned := f.advance(t, model.StatusAssigned, vCaller, v)
	_, err = f.donations.AssignVolunteer(ctx, f.admin, assigned.ID, v.ID)
	assert.ErrorIs(t, err, ErrPrecondition)
	_, err = f.donations.ApproveCompletion(ctx, f.admin, assigned.ID, nil)
	assert.ErrorIs(t, err, ErrPrecondition)

	done := f.advance(t, model.StatusApprovedByAdmin, vCaller, v)
	_, err = f.donations.MarkCompleted(ctx, vCaller, done.ID, "again")
	assert.ErrorIs(t, err, ErrPrecondition)
	_, err = f.donations.ApproveCompletion(ctx, f.admin, done.ID, nil)
	assert.ErrorIs(t, err, ErrPrecondition)
	_, err = f.donations.ApproveDonation(ctx, f.admin, done.ID)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestMarkCompleted_OnlyAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vCaller, v := f.newVolunteer(t, "Ravi")
	wCaller, _ := f.newVolunteer(t, "Meera")

	d := f.advance(t, model.StatusAssigned, vCaller, v)

	_, err := f.donations.MarkCompleted(ctx, wCaller, d.ID, "delivered")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, ErrNotAssignee)

	// A volunteer-role user with no profile is not the assignee either
	noProfile := f.newUser(t, "Kiran", "kiran@gmail.com", model.RoleVolunteer)
	_, err = f.donations.MarkCompleted(ctx, noProfile, d.ID, "delivered")
	assert.ErrorIs(t, err, ErrNotAssignee)

	_, err = f.donations.MarkCompleted(ctx, f.admin, d.ID, "delivered")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRoleGates_CaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.newDonation(t)

	lowerAdmin := Caller{UserID: f.admin.UserID, Role: "admin"}
	got, err := f.donations.ApproveDonation(ctx, lowerAdmin, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)

	_, err = f.donations.ApproveDonation(ctx, f.donor, d.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestApproveDonation_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.donations.ApproveDonation(context.Background(), f.admin, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignVolunteer_UnknownVolunteer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.newDonation(t)
	_, err := f.donations.ApproveDonation(ctx, f.admin, d.ID)
	require.NoError(t, err)

	_, err = f.donations.AssignVolunteer(ctx, f.admin, d.ID, 9999)
	assert.ErrorIs(t, err, ErrVolunteerNotFound)
}

func TestCreateDonation_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []model.CreateDonationRequest{
		{Type: "", Quantity: 3},
		{Type: "books", Quantity: 0},
		{Type: "blood", Quantity: 1},
		{Type: "food", Quantity: -2},
		{Type: "food", Quantity: model.MaxAmount + 1},
	}
	for _, req := range tests {
		_, err := f.donations.CreateDonation(ctx, f.donor, req)
		assert.ErrorIs(t, err, ErrValidation, "%+v", req)
	}

	_, err := f.donations.CreateDonation(ctx, f.admin, model.CreateDonationRequest{Type: "food", Quantity: 1})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestApproveCompletion_NegativePoints(t *testing.T) {
	f := newFixture(t)
	vCaller, v := f.newVolunteer(t, "Ravi")
	d := f.advance(t, model.StatusCompleted, vCaller, v)

	for _, points := range []int{-5, model.MaxAmount + 1} {
		_, err := f.donations.ApproveCompletion(context.Background(), f.admin, d.ID, &points)
		assert.ErrorIs(t, err, ErrValidation, "points %d", points)
	}
}

func TestDeleteDonation_DonorVersusAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vCaller, v := f.newVolunteer(t, "Ravi")

	approved := f.advance(t, model.StatusApproved, vCaller, v)
	err := f.donations.DeleteDonation(ctx, f.donor, approved.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.donations.DeleteDonation(ctx, f.admin, approved.ID))
	_, err = f.donations.GetDonation(ctx, f.admin, approved.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	pending := f.newDonation(t)
	other := f.newUser(t, "Other", "other@gmail.com", model.RoleDonor)
	assert.ErrorIs(t, f.donations.DeleteDonation(ctx, other, pending.ID), ErrForbidden)
	assert.ErrorIs(t, f.donations.DeleteDonation(ctx, vCaller, pending.ID), ErrForbidden)
	require.NoError(t, f.donations.DeleteDonation(ctx, f.donor, pending.ID))

	assert.ErrorIs(t, f.donations.DeleteDonation(ctx, f.donor, pending.ID), ErrNotFound)
}

func TestGetDonation_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vCaller, v := f.newVolunteer(t, "Ravi")
	wCaller, _ := f.newVolunteer(t, "Meera")
	d := f.advance(t, model.StatusAssigned, vCaller, v)

	for _, c := range []Caller{f.admin, f.donor, vCaller} {
		got, err := f.donations.GetDonation(ctx, c, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.ID, got.ID)
	}

	_, err := f.donations.GetDonation(ctx, wCaller, d.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	other := f.newUser(t, "Other", "other@gmail.com", model.RoleDonor)
	_, err = f.donations.GetDonation(ctx, other, d.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListings_ScopedByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vCaller, v := f.newVolunteer(t, "Ravi")

	f.newDonation(t)
	f.advance(t, model.StatusAssigned, vCaller, v)
	other := f.newUser(t, "Other", "other@gmail.com", model.RoleDonor)
	_, err := f.donations.CreateDonation(ctx, other, model.CreateDonationRequest{Type: "food", Quantity: 1})
	require.NoError(t, err)

	all, err := f.donations.ListAllDonations(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.donations.ListAllDonations(ctx, f.donor)
	assert.ErrorIs(t, err, ErrForbidden)

	mine, err := f.donations.ListMyDonations(ctx, f.donor)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	assigned, err := f.donations.ListAssignedDonations(ctx, vCaller)
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	fromRegistry, err := f.volunteers.GetAssignedDonations(ctx, vCaller)
	require.NoError(t, err)
	assert.Len(t, fromRegistry, 1)

	noProfile := f.newUser(t, "Kiran", "kiran@gmail.com", model.RoleVolunteer)
	empty, err := f.donations.ListAssignedDonations(ctx, noProfile)
	require.NoError(t, err)
	assert.Empty(t, empty)
	_, err = f.volunteers.GetAssignedDonations(ctx, noProfile)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteVolunteer_ResetsAssignedDonations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vCaller, v := f.newVolunteer(t, "Ravi")

	first := f.advance(t, model.StatusAssigned, vCaller, v)
	second := f.advance(t, model.StatusCompleted, vCaller, v)

	assert.ErrorIs(t, f.volunteers.DeleteVolunteer(ctx, vCaller, v.ID), ErrForbidden)
	require.NoError(t, f.volunteers.DeleteVolunteer(ctx, f.admin, v.ID))

	for _, id := range []int64{first.ID, second.ID} {
		d, err := f.donations.GetDonation(ctx, f.admin, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, d.Status)
		assert.Nil(t, d.AssignedTo)
	}

	assert.ErrorIs(t, f.volunteers.DeleteVolunteer(ctx, f.admin, v.ID), ErrNotFound)
}

func TestRegisterVolunteer_IsIdempotentPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vCaller, v := f.newVolunteer(t, "Ravi")

	again, err := f.volunteers.RegisterVolunteer(ctx, vCaller, model.RegisterVolunteerRequest{Skills: []string{" cooking ", ""}, Availability: "evenings"})
	require.NoError(t, err)
	assert.Equal(t, v.ID, again.ID)
	assert.Equal(t, []string{"cooking"}, again.Skills)

	all, err := f.volunteers.ListVolunteers(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.volunteers.ListVolunteers(ctx, vCaller)
	assert.ErrorIs(t, err, ErrForbidden)
}

// unreadableVolunteers fails every FindByID after the write succeeds
type unreadableVolunteers struct {
	repository.VolunteerRepository
}

func (unreadableVolunteers) FindByID(context.Context, int64) (*model.Volunteer, error) {
	return nil, errors.New("connection reset")
}

func TestRegisterVolunteer_ReadBackFailureIsLogged(t *testing.T) {
	store := memory.NewStore()
	user := &model.User{Name: "Ravi", Email: "ravi@gmail.com", Role: model.RoleVolunteer}
	require.NoError(t, store.Users().Create(context.Background(), user))

	var buf bytes.Buffer
	svc := NewVolunteerService(unreadableVolunteers{store.Volunteers()}, store.Donations(), policy.New(), 0, zerolog.New(&buf))

	v, err := svc.RegisterVolunteer(context.Background(), Caller{UserID: user.ID, Role: model.RoleVolunteer}, model.RegisterVolunteerRequest{Availability: "weekends"})
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
	assert.Equal(t, "weekends", v.Availability)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "connection reset")
}

func TestLeaderboard_TopFiveByPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, pts := range []int{5, 40, 0, 25, 10, 30, 15} {
		vCaller, v := f.newVolunteer(t, fmt.Sprintf("vol%c", 'a'+i))
		d := f.advance(t, model.StatusCompleted, vCaller, v)
		p := pts
		_, err := f.donations.ApproveCompletion(ctx, f.admin, d.ID, &p)
		require.NoError(t, err)
	}

	board, err := f.volunteers.Leaderboard(ctx, f.donor)
	require.NoError(t, err)
	require.Len(t, board, 5)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Points, board[i].Points)
	}
	assert.Equal(t, 40, board[0].Points)
	assert.Equal(t, 10, board[4].Points)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, token, err := f.auth.Register(ctx, model.RegisterRequest{
		Name: "Neha Singh", Email: "neha@gmail.com", Password: "Str0ng!Pass",
		Role: "volunteer", Phone: "9876543210", Location: "Delhi",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, model.RoleVolunteer, user.Role)
	assert.NotEqual(t, "Str0ng!Pass", user.PasswordHash)

	logged, token, err := f.auth.Login(ctx, "neha@gmail.com", "Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, logged.ID)

	_, _, err = f.auth.Login(ctx, "neha@gmail.com", "Wr0ng!Pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.auth.Login(ctx, "ghost@gmail.com", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.auth.Register(ctx, model.RegisterRequest{
		Name: "Neha", Email: "neha@gmail.com", Password: "Str0ng!Pass", Phone: "9876543210", Location: "Delhi",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := model.RegisterRequest{Name: "Neha", Email: "neha@gmail.com", Password: "Str0ng!Pass", Role: "Donor", Phone: "9876543210", Location: "Delhi"}

	tests := []struct {
		name   string
		mutate func(r *model.RegisterRequest)
	}{
		{"donor without phone", func(r *model.RegisterRequest) { r.Phone = "" }},
		{"donor without location", func(r *model.RegisterRequest) { r.Location = "" }},
		{"digits in name", func(r *model.RegisterRequest) { r.Name = "Neha2" }},
		{"bad email", func(r *model.RegisterRequest) { r.Email = "neha@example.com" }},
		{"weak password", func(r *model.RegisterRequest) { r.Password = "password" }},
		{"unknown role", func(r *model.RegisterRequest) { r.Role = "Manager" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, _, err := f.auth.Register(ctx, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	admin, _, err := f.auth.Register(ctx, model.RegisterRequest{Name: "Root", Email: "root@gmail.com", Password: "Str0ng!Pass", Role: "Admin"})
	require.NoError(t, err)
	assert.Nil(t, admin.Phone)
	assert.Nil(t, admin.Location)
}

func TestMessage_StripsKind(t *testing.T) {
	assert.Equal(t, "donation not found", Message(ErrDonationNotFound))
	assert.Equal(t, "boom", Message(fmt.Errorf("boom")))
}
