// Package policy maps (role, action) pairs to an allow/deny decision.
//
// Handlers and services ask the policy instead of comparing role strings
// inline. Ownership rules that depend on a loaded resource (donor owns the
// donation, volunteer is the assignee) stay in the service layer; the policy
// only answers the role question.
package policy

import (
	"strings"

	"donation_tracker/internal/model"
)

// Action names an operation guarded by a role check
type Action string

const (
	ActionCreateDonation    Action = "donation:create"
	ActionListAllDonations  Action = "donation:list_all"
	ActionListOwnDonations  Action = "donation:list_own"
	ActionListAssigned      Action = "donation:list_assigned"
	ActionViewDonation      Action = "donation:view"
	ActionApproveDonation   Action = "donation:approve"
	ActionAssignVolunteer   Action = "donation:assign"
	ActionCompleteDonation  Action = "donation:complete"
	ActionApproveCompletion Action = "donation:approve_completion"
	ActionDeleteAnyDonation Action = "donation:delete_any"
	ActionDeleteOwnDonation Action = "donation:delete_own"
	ActionRegisterVolunteer Action = "volunteer:register"
	ActionListVolunteers    Action = "volunteer:list"
	ActionDeleteVolunteer   Action = "volunteer:delete"
	ActionViewLeaderboard   Action = "volunteer:leaderboard"
)

var allRoles = []string{model.RoleDonor, model.RoleVolunteer, model.RoleAdmin}

// Policy decides whether a role may perform an action
type Policy struct {
	rules map[Action]map[string]struct{}
}

// New returns the donation workflow's role table
func New() *Policy {
	p := &Policy{rules: make(map[Action]map[string]struct{})}

	p.allow(ActionCreateDonation, model.RoleDonor)
	p.allow(ActionListAllDonations, model.RoleAdmin)
	p.allow(ActionListOwnDonations, model.RoleDonor)
	p.allow(ActionListAssigned, model.RoleVolunteer)
	p.allow(ActionViewDonation, allRoles...)
	p.allow(ActionApproveDonation, model.RoleAdmin)
	p.allow(ActionAssignVolunteer, model.RoleAdmin)
	p.allow(ActionCompleteDonation, model.RoleVolunteer)
	p.allow(ActionApproveCompletion, model.RoleAdmin)
	p.allow(ActionDeleteAnyDonation, model.RoleAdmin)
	p.allow(ActionDeleteOwnDonation, model.RoleDonor)

	p.allow(ActionRegisterVolunteer, allRoles...)
	p.allow(ActionListVolunteers, model.RoleAdmin)
	p.allow(ActionDeleteVolunteer, model.RoleAdmin)
	p.allow(ActionViewLeaderboard, allRoles...)

	return p
}

func (p *Policy) allow(action Action, roles ...string) {
	set, ok := p.rules[action]
	if !ok {
		set = make(map[string]struct{}, len(roles))
		p.rules[action] = set
	}
	for _, r := range roles {
		set[strings.ToLower(r)] = struct{}{}
	}
}

// Can reports whether role may perform action. Role comparison ignores case;
// unknown actions are denied.
func (p *Policy) Can(role string, action Action) bool {
	set, ok := p.rules[action]
	if !ok {
		return false
	}
	_, ok = set[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

// IsAdmin is shorthand for the case-insensitive admin role check
func IsAdmin(role string) bool {
	return strings.EqualFold(strings.TrimSpace(role), model.RoleAdmin)
}
