package service

import (
	"fmt"
	"slices"

	"parkspace-backend/internal/domain"
)

type Action string

const (
	ActionCreateLot     Action = "lot:create"
	ActionManageLot     Action = "lot:manage"
	ActionHardDeleteLot Action = "lot:hard_delete"
	ActionViewLotStats  Action = "lot:stats"
	ActionCreateBooking Action = "booking:create"
	ActionViewBooking   Action = "booking:view"
	ActionCancelBooking Action = "booking:cancel"
)

// Authorize is the single access policy. owners lists the user ids that own
// the resource being acted on (lot owner, booking user); admins pass every check.
func Authorize(p domain.Principal, action Action, owners ...int64) error {
	if p.ID == 0 {
		return domain.ErrUnauthenticated
	}
	if p.IsAdmin() {
		return nil
	}

	switch action {
	case ActionCreateBooking:
		return nil
	case ActionCreateLot:
		if p.Role == domain.RoleOwner {
			return nil
		}
	case ActionHardDeleteLot:
		// admin only
	case ActionManageLot, ActionViewLotStats, ActionViewBooking, ActionCancelBooking:
		if slices.Contains(owners, p.ID) {
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown action %s", domain.ErrForbidden, action)
	}
	return fmt.Errorf("%w: %s", domain.ErrForbidden, action)
}
