package workflow

import (
	"testing"

	"buildtrack/internal/database"
	"buildtrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueValidation(t *testing.T) {
	f := newFixture(t, "enqueue")
	q := f.queue()
	staff := f.actor(f.role(t, "staff", models.RoleKindStaff))

	_, err := q.Enqueue(staff, models.ChangeUpdate, "Invoice", "1", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound, "only registered subjects may be staged")

	homeless := staff
	homeless.TenantID = nil
	_, err = q.Enqueue(homeless, models.ChangeUpdate, "Project", "1", nil, nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	change, err := q.Enqueue(staff, models.ChangeUpdate, "Project", "1",
		models.JSONMap{"name": "Renamed"}, models.JSONMap{"name": "Original"})
	require.NoError(t, err)
	assert.Equal(t, models.ChangePending, change.Status)
	assert.Equal(t, f.tenant.ID, change.TenantID)
}

func TestApproveAppliesUpdate(t *testing.T) {
	f := newFixture(t, "apply_update")
	q := f.queue()
	project := f.project(t, models.ApprovalDraft)

	staff := f.actor(f.role(t, "staff", models.RoleKindStaff))
	change, err := q.Enqueue(staff, models.ChangeUpdate, "Project",
		database.ObjectID(project.ID),
		models.JSONMap{"name": "Villa Block B"}, models.JSONMap{"name": project.Name})
	require.NoError(t, err)

	reviewer := f.actor(f.role(t, "reviewer", models.RoleKindManager))
	resolved, err := q.Approve(reviewer, change.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeApproved, resolved.Status)
	assert.Equal(t, reviewer.UserID, *resolved.ReviewedByID)

	var reloaded models.Project
	require.NoError(t, f.db.First(&reloaded, project.ID).Error)
	assert.Equal(t, "Villa Block B", reloaded.Name)
}

func TestApproveAppliesCreate(t *testing.T) {
	f := newFixture(t, "apply_create")
	q := f.queue()
	project := f.project(t, models.ApprovalDraft)

	staff := f.actor(f.role(t, "staff", models.RoleKindStaff))
	change, err := q.Enqueue(staff, models.ChangeCreate, "Payment", "", models.JSONMap{
		"project_id": project.ID,
		"payer":      "owner",
		"method":     "bank_transfer",
		"amount":     2500.0,
		"date":       "2026-03-01",
	}, nil)
	require.NoError(t, err)

	reviewer := f.actor(f.role(t, "owner", models.RoleKindAdmin))
	_, err = q.Approve(reviewer, change.ID)
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, f.db.Where("project_id = ?", project.ID).First(&payment).Error)
	assert.Equal(t, 2500.0, payment.Amount)
	require.NotNil(t, payment.TenantID)
	assert.Equal(t, f.tenant.ID, *payment.TenantID, "tenant is stamped from the change, not the payload")
}

func TestApproveMissingSubject(t *testing.T) {
	f := newFixture(t, "apply_missing")
	q := f.queue()

	staff := f.actor(f.role(t, "staff", models.RoleKindStaff))
	change, err := q.Enqueue(staff, models.ChangeUpdate, "Project", "777",
		models.JSONMap{"name": "Ghost"}, nil)
	require.NoError(t, err)

	reviewer := f.actor(f.role(t, "reviewer", models.RoleKindManager))
	_, err = q.Approve(reviewer, change.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The failed apply rolled everything back; the change is still
	// reviewable.
	var reloaded models.PendingChange
	require.NoError(t, f.db.First(&reloaded, change.ID).Error)
	assert.Equal(t, models.ChangePending, reloaded.Status)
}

func TestChangeResolvesExactlyOnce(t *testing.T) {
	f := newFixture(t, "resolve_once")
	q := f.queue()
	project := f.project(t, models.ApprovalDraft)

	staff := f.actor(f.role(t, "staff", models.RoleKindStaff))
	change, err := q.Enqueue(staff, models.ChangeUpdate, "Project",
		database.ObjectID(project.ID), models.JSONMap{"name": "Once"}, nil)
	require.NoError(t, err)

	reviewer := f.actor(f.role(t, "reviewer", models.RoleKindManager))
	_, err = q.Approve(reviewer, change.ID)
	require.NoError(t, err)

	_, err = q.Approve(reviewer, change.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = q.Reject(reviewer, change.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestReviewerGate(t *testing.T) {
	f := newFixture(t, "reviewer_gate")
	q := f.queue()
	project := f.project(t, models.ApprovalDraft)

	staff := f.actor(f.role(t, "staff", models.RoleKindStaff))
	change, err := q.Enqueue(staff, models.ChangeUpdate, "Project",
		database.ObjectID(project.ID), models.JSONMap{"name": "Gated"}, nil)
	require.NoError(t, err)

	// Staff cannot review, not even their own request.
	_, err = q.Approve(staff, change.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// A manager from another tenant cannot either.
	other := f.otherTenant(t, "rival-review")
	foreign := f.actor(f.role(t, "foreign", models.RoleKindManager))
	foreign.TenantID = &other.ID
	_, err = q.Approve(foreign, change.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// A platform superuser from no tenant can.
	_, err = q.Approve(f.superuser(), change.ID)
	assert.NoError(t, err)
}

func TestRejectLeavesSubjectUntouched(t *testing.T) {
	f := newFixture(t, "reject_subject")
	q := f.queue()
	project := f.project(t, models.ApprovalDraft)

	staff := f.actor(f.role(t, "staff", models.RoleKindStaff))
	change, err := q.Enqueue(staff, models.ChangeUpdate, "Project",
		database.ObjectID(project.ID), models.JSONMap{"name": "Should not land"}, nil)
	require.NoError(t, err)

	reviewer := f.actor(f.role(t, "reviewer", models.RoleKindManager))
	resolved, err := q.Reject(reviewer, change.ID, "not in scope")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRejected, resolved.Status)
	assert.Equal(t, "not in scope", resolved.ReviewNotes)

	var reloaded models.Project
	require.NoError(t, f.db.First(&reloaded, project.ID).Error)
	assert.Equal(t, "Villa Block A", reloaded.Name)
}

func TestApproveDeleteChange(t *testing.T) {
	f := newFixture(t, "apply_delete")
	q := f.queue()
	project := f.project(t, models.ApprovalDraft)
	payment := models.Payment{
		ProjectID: &project.ID, TenantID: &f.tenant.ID,
		Payer: models.PayerOwner, Method: models.MethodCashOffice, Amount: 900,
	}
	require.NoError(t, f.db.Create(&payment).Error)

	staff := f.actor(f.role(t, "staff", models.RoleKindStaff))
	change, err := q.Enqueue(staff, models.ChangeDelete, "Payment",
		database.ObjectID(payment.ID), nil, models.JSONMap{"amount": payment.Amount})
	require.NoError(t, err)

	reviewer := f.actor(f.role(t, "reviewer", models.RoleKindManager))
	_, err = q.Approve(reviewer, change.ID)
	require.NoError(t, err)

	var n int64
	f.db.Model(&models.Payment{}).Where("id = ?", payment.ID).Count(&n)
	assert.Zero(t, n)
}
