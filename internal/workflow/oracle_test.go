package workflow

import (
	"testing"

	"buildtrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldsBasics(t *testing.T) {
	f := newFixture(t, "oracle_basics")
	o := NewOracle(f.db)

	assert.True(t, f.superuser().IsSuperuser)
	assert.True(t, o.Holds(f.superuser(), models.PermProjectApprove), "superusers hold everything")

	assert.False(t, o.Holds(f.actor(nil), models.PermProjectCreate), "no role, no capabilities")

	role := f.role(t, "creator", models.RoleKindStaff, models.PermProjectCreate)
	actor := f.actor(role)
	assert.True(t, o.Holds(actor, models.PermProjectCreate))
	assert.False(t, o.Holds(actor, models.PermProjectApprove))
	assert.False(t, o.Holds(actor, "no.such.permission"))
}

// Capability edits must take effect on the very next check. The oracle
// reads the role mapping fresh every call, so granting or revoking a
// permission mid-session needs no restart and no cache flush.
func TestHoldsSeesLiveMutations(t *testing.T) {
	f := newFixture(t, "oracle_fresh")
	o := NewOracle(f.db)

	role := f.role(t, "grows", models.RoleKindManager)
	actor := f.actor(role)
	assert.False(t, o.Holds(actor, models.PermProjectApprove))

	require.NoError(t, f.db.Model(role).Association("Permissions").
		Append(f.perms[models.PermProjectApprove]))
	assert.True(t, o.Holds(actor, models.PermProjectApprove))

	require.NoError(t, f.db.Model(role).Association("Permissions").
		Delete(f.perms[models.PermProjectApprove]))
	assert.False(t, o.Holds(actor, models.PermProjectApprove))
}
