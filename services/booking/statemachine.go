package booking

import (
	"sessionbook/models"
)

// transitions is the single table of legal edges and who may drive them.
// Terminal statuses have no row.
var transitions = map[models.BookingStatus]map[models.BookingStatus][]models.Role{
	models.StatusPendingPayment: {
		models.StatusConfirmed: {models.RoleConsumer, models.RoleSystem},
		models.StatusCancelled: {models.RoleConsumer},
		models.StatusFailed:    {models.RoleSystem},
	},
	models.StatusRequested: {
		models.StatusConfirmed: {models.RoleProvider},
		models.StatusCancelled: {models.RoleConsumer},
		models.StatusRejected:  {models.RoleProvider},
	},
	models.StatusConfirmed: {
		models.StatusInProgress: {models.RoleProvider},
		models.StatusCancelled:  {models.RoleConsumer, models.RoleProvider},
	},
	models.StatusInProgress: {
		models.StatusCompleted: {models.RoleSystem},
	},
}

// IsTerminal reports whether s has no outgoing edges.
func IsTerminal(s models.BookingStatus) bool {
	switch s {
	case models.StatusCompleted, models.StatusCancelled, models.StatusRejected, models.StatusFailed:
		return true
	}
	return false
}

// AllowedRoles lists the roles that may drive from -> to, nil if the edge does not exist.
func AllowedRoles(from, to models.BookingStatus) []models.Role {
	return transitions[from][to]
}

// NextStatuses lists the statuses reachable from s by role.
func NextStatuses(s models.BookingStatus, role models.Role) []models.BookingStatus {
	var out []models.BookingStatus
	for _, to := range models.AllStatuses {
		for _, r := range transitions[s][to] {
			if r == role {
				out = append(out, to)
				break
			}
		}
	}
	return out
}

// Validate decides whether role may move a booking from -> to.
// A missing edge is InvalidTransition; an existing edge with the wrong role is PermissionDenied.
func Validate(from, to models.BookingStatus, role models.Role) error {
	if IsTerminal(from) {
		return newError(KindInvalidTransition, "cannot transition from %s to %s: %s is terminal", from, to, from)
	}
	roles, ok := transitions[from][to]
	if !ok {
		return newError(KindInvalidTransition, "cannot transition from %s to %s", from, to)
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return newError(KindPermissionDenied, "role %s may not transition from %s to %s", role, from, to)
}
