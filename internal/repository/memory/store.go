// Package memory provides process-local implementations of the repository
// interfaces. All three repositories share one lock so that multi-record
// operations (approving a completion, deleting a volunteer) are atomic the
// same way a database transaction is.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"donation_tracker/internal/model"
	"donation_tracker/internal/repository"
)

// Store holds users, volunteers and donations in maps keyed by id
type Store struct {
	mu         sync.RWMutex
	users      map[int64]model.User
	volunteers map[int64]model.Volunteer
	donations  map[int64]model.Donation
	lastID     int64
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		users:      make(map[int64]model.User),
		volunteers: make(map[int64]model.Volunteer),
		donations:  make(map[int64]model.Donation),
	}
}

func (s *Store) Users() repository.UserRepository           { return userRepo{s} }
func (s *Store) Volunteers() repository.VolunteerRepository { return volunteerRepo{s} }
func (s *Store) Donations() repository.DonationRepository   { return donationRepo{s} }

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.s.nextID()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r userRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type volunteerRepo struct{ s *Store }

func (r volunteerRepo) Upsert(_ context.Context, v *model.Volunteer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	skills := append([]string{}, v.Skills...)
	for id, existing := range r.s.volunteers {
		if existing.UserID == v.UserID {
			existing.Skills = skills
			existing.Availability = v.Availability
			r.s.volunteers[id] = existing
			v.ID, v.Points, v.CreatedAt, v.Skills = existing.ID, existing.Points, existing.CreatedAt, skills
			return nil
		}
	}
	v.ID = r.s.nextID()
	v.Points = 0
	v.CreatedAt = time.Now()
	v.Skills = skills
	stored := *v
	stored.Name, stored.Email = "", ""
	r.s.volunteers[v.ID] = stored
	return nil
}

// withUser fills the denormalized name and email the SQL join would return.
// Caller holds the lock.
func (r volunteerRepo) withUser(v model.Volunteer) model.Volunteer {
	if u, ok := r.s.users[v.UserID]; ok {
		v.Name, v.Email = u.Name, u.Email
	}
	v.Skills = append([]string{}, v.Skills...)
	return v
}

func (r volunteerRepo) FindByID(_ context.Context, id int64) (*model.Volunteer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.volunteers[id]
	if !ok {
		return nil, nil
	}
	v = r.withUser(v)
	return &v, nil
}

func (r volunteerRepo) FindByUserID(_ context.Context, userID int64) (*model.Volunteer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.volunteers {
		if v.UserID == userID {
			v = r.withUser(v)
			return &v, nil
		}
	}
	return nil, nil
}

func (r volunteerRepo) sorted(less func(a, b model.Volunteer) bool) []model.Volunteer {
	out := make([]model.Volunteer, 0, len(r.s.volunteers))
	for _, v := range r.s.volunteers {
		out = append(out, r.withUser(v))
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r volunteerRepo) FindAll(_ context.Context) ([]model.Volunteer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(a, b model.Volunteer) bool { return a.ID < b.ID }), nil
}

func (r volunteerRepo) TopByPoints(_ context.Context, limit int) ([]model.Volunteer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.sorted(func(a, b model.Volunteer) bool {
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		return a.ID < b.ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r volunteerRepo) Delete(_ context.Context, id int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.volunteers[id]; !ok {
		return 0, repository.ErrNotFound
	}
	var released int64
	now := time.Now()
	for did, d := range r.s.donations {
		if d.AssignedTo != nil && *d.AssignedTo == id {
			d.AssignedTo = nil
			d.Status = model.StatusApproved
			d.UpdatedAt = now
			r.s.donations[did] = d
			released++
		}
	}
	delete(r.s.volunteers, id)
	return released, nil
}

type donationRepo struct{ s *Store }

func (r donationRepo) Create(_ context.Context, d *model.Donation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = r.s.nextID()
	stored := *d
	stored.Donor, stored.Assignee = nil, nil
	r.s.donations[d.ID] = stored
	return nil
}

// view attaches donor and assignee summaries. Caller holds the lock.
func (r donationRepo) view(d model.Donation) model.Donation {
	if u, ok := r.s.users[d.DonorID]; ok {
		d.Donor = &model.DonorSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Location: u.Location}
	}
	if d.AssignedTo != nil {
		vid := *d.AssignedTo
		d.AssignedTo = &vid
		if v, ok := r.s.volunteers[vid]; ok {
			a := &model.AssigneeSummary{VolunteerID: v.ID, UserID: v.UserID}
			if u, ok := r.s.users[v.UserID]; ok {
				a.Name, a.Email = u.Name, u.Email
			}
			d.Assignee = a
		}
	}
	return d
}

func (r donationRepo) FindByID(_ context.Context, id int64) (*model.Donation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.donations[id]
	if !ok {
		return nil, nil
	}
	d = r.view(d)
	return &d, nil
}

func (r donationRepo) FindAll(_ context.Context, filters repository.DonationFilters) ([]model.Donation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Donation{}
	for _, d := range r.s.donations {
		if filters.DonorID != nil && d.DonorID != *filters.DonorID {
			continue
		}
		if filters.AssignedTo != nil && (d.AssignedTo == nil || *d.AssignedTo != *filters.AssignedTo) {
			continue
		}
		out = append(out, r.view(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// update applies fn to the donation when its status equals from
func (r donationRepo) update(id int64, from model.DonationStatus, fn func(d *model.Donation) bool) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.donations[id]
	if !ok || d.Status != from {
		return false
	}
	if !fn(&d) {
		return false
	}
	d.UpdatedAt = time.Now()
	r.s.donations[id] = d
	return true
}

func (r donationRepo) UpdateStatus(_ context.Context, id int64, from, to model.DonationStatus) (bool, error) {
	return r.update(id, from, func(d *model.Donation) bool {
		d.Status = to
		return true
	}), nil
}

func (r donationRepo) Assign(_ context.Context, id, volunteerID int64) (bool, error) {
	return r.update(id, model.StatusApproved, func(d *model.Donation) bool {
		d.AssignedTo = &volunteerID
		d.Status = model.StatusAssigned
		return true
	}), nil
}

func (r donationRepo) MarkCompleted(_ context.Context, id, volunteerID int64, proof string) (bool, error) {
	return r.update(id, model.StatusAssigned, func(d *model.Donation) bool {
		if d.AssignedTo == nil || *d.AssignedTo != volunteerID {
			return false
		}
		d.Status = model.StatusCompleted
		d.CompletionProof = proof
		return true
	}), nil
}

func (r donationRepo) ApproveCompletion(_ context.Context, id int64, points int) (bool, error) {
	return r.update(id, model.StatusCompleted, func(d *model.Donation) bool {
		d.Status = model.StatusApprovedByAdmin
		d.PointsAwarded = points
		if d.AssignedTo != nil {
			if v, ok := r.s.volunteers[*d.AssignedTo]; ok {
				v.Points += points
				r.s.volunteers[v.ID] = v
			}
		}
		return true
	}), nil
}

func (r donationRepo) Delete(_ context.Context, id int64, requireStatus model.DonationStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.donations[id]
	if !ok || (requireStatus != "" && d.Status != requireStatus) {
		return false, nil
	}
	delete(r.s.donations, id)
	return true, nil
}
