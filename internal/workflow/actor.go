package workflow

import (
	"buildtrack/internal/models"

	"github.com/google/uuid"
)

// Actor is the identity a workflow call runs as. It is built once per
// request and threaded explicitly through every check; there is no
// ambient "current user".
type Actor struct {
	UserID   uint
	Email    string
	TenantID *uuid.UUID

	IsSuperuser bool
	IsStaff     bool

	RoleID   *uint
	RoleKind models.RoleKind // zero when the actor has no role

	// Client address, recorded on audit entries only.
	IP string
}

func ActorFromUser(u *models.User) Actor {
	a := Actor{
		UserID:      u.ID,
		Email:       u.Email,
		TenantID:    u.TenantID,
		IsSuperuser: u.IsSuperuser,
		IsStaff:     u.IsStaff,
		RoleID:      u.RoleID,
	}
	if u.Role != nil {
		a.RoleKind = u.Role.Kind
	}
	return a
}

// RequiresApproval reports whether the actor's edits must go through
// the pending-change queue instead of mutating live records.
func (a Actor) RequiresApproval() bool {
	if a.IsSuperuser {
		return false
	}
	return a.RoleKind == models.RoleKindStaff
}

// CanReviewChanges reports who may resolve pending changes.
func (a Actor) CanReviewChanges() bool {
	if a.IsSuperuser {
		return true
	}
	return a.RoleKind == models.RoleKindAdmin || a.RoleKind == models.RoleKindManager
}

// CanManageFinances gates payment and contract mutations.
func (a Actor) CanManageFinances() bool {
	if a.IsSuperuser {
		return true
	}
	return a.RoleKind == models.RoleKindAdmin || a.RoleKind == models.RoleKindManager
}

// IsTenantOwner reports an admin-kind role. Together with platform
// superusers these are the only actors allowed to final-approve.
func (a Actor) IsTenantOwner() bool {
	return a.RoleKind == models.RoleKindAdmin
}
