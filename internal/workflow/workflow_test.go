package workflow

import (
	"testing"

	"buildtrack/internal/database"
	"buildtrack/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixture is one isolated in-memory database with a tenant, a stage
// and the full permission catalog wired into rules.
type fixture struct {
	db     *gorm.DB
	tenant *models.Tenant
	stage  *models.WorkflowStage
	perms  map[string]*models.Permission
}

func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

var stageRulePerms = map[models.WorkflowAction]string{
	models.ActionCreate:        models.PermProjectCreate,
	models.ActionEdit:          models.PermProjectEdit,
	models.ActionSubmit:        models.PermProjectSubmit,
	models.ActionApprove:       models.PermProjectApprove,
	models.ActionReject:        models.PermProjectReject,
	models.ActionDeleteRequest: models.PermProjectDeleteRequest,
	models.ActionDeleteApprove: models.PermProjectDeleteApprove,
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	db := openDB(t, name)

	tenant := &models.Tenant{Name: "Acme Construction", Slug: "acme-" + name, IsActive: true}
	require.NoError(t, db.Create(tenant).Error)

	f := &fixture{db: db, tenant: tenant, perms: map[string]*models.Permission{}}

	for _, code := range []string{
		models.PermProjectCreate, models.PermProjectEdit, models.PermProjectSubmit,
		models.PermProjectApprove, models.PermProjectReject,
		models.PermProjectDeleteRequest, models.PermProjectDeleteApprove,
		models.PermContractManage, models.PermPaymentManage,
		models.PermFinanceView, models.PermAuditView,
	} {
		p := &models.Permission{Code: code, Name: code}
		require.NoError(t, db.Create(p).Error)
		f.perms[code] = p
	}

	f.stage = f.newStage(t, "stage_1", true)
	return f
}

// newStage creates a stage carrying one rule per workflow action.
func (f *fixture) newStage(t *testing.T, code string, active bool) *models.WorkflowStage {
	t.Helper()
	stage := &models.WorkflowStage{Code: code, Name: code, IsActive: active}
	require.NoError(t, f.db.Create(stage).Error)
	for action, permCode := range stageRulePerms {
		rule := &models.WorkflowRule{
			StageID:              stage.ID,
			Action:               action,
			RequiredPermissionID: f.perms[permCode].ID,
			IsActive:             true,
		}
		require.NoError(t, f.db.Create(rule).Error)
	}
	return stage
}

func (f *fixture) role(t *testing.T, name string, kind models.RoleKind, permCodes ...string) *models.Role {
	t.Helper()
	var perms []models.Permission
	for _, code := range permCodes {
		perms = append(perms, *f.perms[code])
	}
	role := &models.Role{Name: name, Kind: kind, IsActive: true, Permissions: perms}
	require.NoError(t, f.db.Create(role).Error)
	return role
}

func (f *fixture) actor(role *models.Role) Actor {
	a := Actor{UserID: 1, Email: "user@acme.test", TenantID: &f.tenant.ID}
	if role != nil {
		a.RoleID = &role.ID
		a.RoleKind = role.Kind
	}
	return a
}

func (f *fixture) superuser() Actor {
	return Actor{UserID: 99, Email: "root@platform.test", IsSuperuser: true, IsStaff: true}
}

func (f *fixture) project(t *testing.T, status models.ApprovalStatus) *models.Project {
	t.Helper()
	p := &models.Project{
		TenantID:       &f.tenant.ID,
		Name:           "Villa Block A",
		Type:           models.ProjectVilla,
		Status:         models.StatusNotStarted,
		ApprovalStatus: status,
		CurrentStageID: &f.stage.ID,
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) machine() *Machine {
	return NewMachine(f.db, database.NewRecorder(f.db, zap.NewNop()), zap.NewNop())
}

func (f *fixture) queue() *Queue {
	return NewQueue(f.db, database.NewRecorder(f.db, zap.NewNop()), zap.NewNop())
}

func (f *fixture) otherTenant(t *testing.T, slug string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{Name: "Other Co", Slug: slug, IsActive: true}
	require.NoError(t, f.db.Create(tenant).Error)
	return tenant
}
