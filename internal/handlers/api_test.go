package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"buildtrack/internal/database"
	"buildtrack/internal/models"
	"buildtrack/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type apiFixture struct {
	db     *gorm.DB
	h      *Handler
	tenant *models.Tenant
}

func newAPIFixture(t *testing.T, name string) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := openDB(t, name)
	tenant := &models.Tenant{Name: "Acme Construction", Slug: "acme-" + name, IsActive: true}
	require.NoError(t, db.Create(tenant).Error)
	return &apiFixture{db: db, h: New(db, zap.NewNop()), tenant: tenant}
}

func (f *apiFixture) admin() workflow.Actor {
	return workflow.Actor{UserID: 1, TenantID: &f.tenant.ID, RoleKind: models.RoleKindAdmin}
}

func (f *apiFixture) staff() workflow.Actor {
	return workflow.Actor{UserID: 2, TenantID: &f.tenant.ID, RoleKind: models.RoleKindStaff}
}

func (f *apiFixture) project(t *testing.T) *models.Project {
	t.Helper()
	p := &models.Project{
		TenantID:       &f.tenant.ID,
		Name:           "Villa Block A",
		Type:           models.ProjectVilla,
		Status:         models.StatusNotStarted,
		ApprovalStatus: models.ApprovalDraft,
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

// call runs a handler with the given actor, JSON body and route params.
func call(actor workflow.Actor, body string, params gin.Params, fn gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("Actor", actor)
	c.Params = params
	fn(c)
	return w
}

func idParam(name string, id uint) gin.Param {
	return gin.Param{Key: name, Value: strconv.FormatUint(uint64(id), 10)}
}

// A reviewed contract change moves the deriver's denominator, so
// approving it must refresh the stored operational status the same way
// a direct contract write does.
func TestApprovedContractChangeRecomputesStatus(t *testing.T) {
	f := newAPIFixture(t, "api_contract_change")
	project := f.project(t)
	contract := models.Contract{ProjectID: project.ID, TenantID: &f.tenant.ID, TotalProjectValue: 100000}
	require.NoError(t, f.db.Create(&contract).Error)
	require.NoError(t, f.db.Create(&models.Payment{
		ProjectID: &project.ID, TenantID: &f.tenant.ID,
		Payer: models.PayerOwner, Method: models.MethodBankTransfer,
		Amount: 95000, Date: time.Now().AddDate(0, 0, -3),
	}).Error)

	f.h.updater.Recompute(project.ID)
	var before models.Project
	require.NoError(t, f.db.First(&before, project.ID).Error)
	require.Equal(t, models.StatusHandoverStage, before.Status)

	change, err := f.h.queue.Enqueue(f.staff(), models.ChangeUpdate, "Contract",
		database.ObjectID(contract.ID),
		models.JSONMap{"total_project_value": 1000000.0, "project_id": project.ID},
		models.JSONMap{"total_project_value": contract.TotalProjectValue})
	require.NoError(t, err)

	w := call(f.admin(), "", gin.Params{idParam("id", change.ID)}, f.h.ApprovePendingChange)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var after models.Project
	require.NoError(t, f.db.First(&after, project.ID).Error)
	assert.Equal(t, models.StatusExecutionStarted, after.Status,
		"raising the denominator must demote the derived status immediately")
}

// Same path without project_id in the payload: the project is resolved
// through the subject contract row.
func TestApprovedContractChangeResolvesProjectFromSubject(t *testing.T) {
	f := newAPIFixture(t, "api_contract_subject")
	project := f.project(t)
	contract := models.Contract{ProjectID: project.ID, TenantID: &f.tenant.ID, TotalProjectValue: 100000}
	require.NoError(t, f.db.Create(&contract).Error)
	require.NoError(t, f.db.Create(&models.Payment{
		ProjectID: &project.ID, TenantID: &f.tenant.ID,
		Payer: models.PayerOwner, Method: models.MethodBankTransfer,
		Amount: 100000, Date: time.Now().AddDate(0, 0, -3),
	}).Error)
	f.h.updater.Recompute(project.ID)

	change, err := f.h.queue.Enqueue(f.staff(), models.ChangeUpdate, "Contract",
		database.ObjectID(contract.ID),
		models.JSONMap{"total_project_value": 1000000.0}, nil)
	require.NoError(t, err)

	w := call(f.admin(), "", gin.Params{idParam("id", change.ID)}, f.h.ApprovePendingChange)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var after models.Project
	require.NoError(t, f.db.First(&after, project.ID).Error)
	assert.Equal(t, models.StatusExecutionStarted, after.Status)
}

func TestVariationAdjustsContractValue(t *testing.T) {
	f := newAPIFixture(t, "api_variation")
	project := f.project(t)
	require.NoError(t, f.db.Create(&models.Contract{
		ProjectID: project.ID, TenantID: &f.tenant.ID, TotalProjectValue: 100000,
	}).Error)
	require.NoError(t, f.db.Create(&models.Payment{
		ProjectID: &project.ID, TenantID: &f.tenant.ID,
		Payer: models.PayerOwner, Method: models.MethodBankTransfer,
		Amount: 95000, Date: time.Now().AddDate(0, 0, -3),
	}).Error)
	f.h.updater.Recompute(project.ID)

	w := call(f.admin(), `{"number":"VO-1","net_amount":900000}`,
		gin.Params{idParam("id", project.ID)}, f.h.CreateVariation)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var contract models.Contract
	require.NoError(t, f.db.Where("project_id = ?", project.ID).First(&contract).Error)
	assert.Equal(t, 1000000.0, contract.TotalProjectValue)

	var p models.Project
	require.NoError(t, f.db.First(&p, project.ID).Error)
	assert.Equal(t, models.StatusExecutionStarted, p.Status,
		"the new denominator must flow into the derived status")

	var variation models.Variation
	require.NoError(t, f.db.Where("project_id = ?", project.ID).First(&variation).Error)

	w = call(f.admin(), "",
		gin.Params{idParam("id", project.ID), idParam("variationID", variation.ID)},
		f.h.DeleteVariation)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NoError(t, f.db.Where("project_id = ?", project.ID).First(&contract).Error)
	assert.Equal(t, 100000.0, contract.TotalProjectValue)
	require.NoError(t, f.db.First(&p, project.ID).Error)
	assert.Equal(t, models.StatusHandoverStage, p.Status)
}

func TestVariationRequiresFinanceRole(t *testing.T) {
	f := newAPIFixture(t, "api_variation_gate")
	project := f.project(t)

	w := call(f.staff(), `{"net_amount":5000}`,
		gin.Params{idParam("id", project.ID)}, f.h.CreateVariation)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var n int64
	f.db.Model(&models.Variation{}).Count(&n)
	assert.Zero(t, n)
}

func TestPutContractCreatesThenUpdates(t *testing.T) {
	f := newAPIFixture(t, "api_put_contract")
	project := f.project(t)

	w := call(f.admin(), `{"total_project_value":100000,"contractor_name":"Al Noor"}`,
		gin.Params{idParam("id", project.ID)}, f.h.PutContract)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(f.admin(), `{"total_project_value":250000,"contractor_name":"Al Noor"}`,
		gin.Params{idParam("id", project.ID)}, f.h.PutContract)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var n int64
	f.db.Model(&models.Contract{}).Where("project_id = ?", project.ID).Count(&n)
	assert.EqualValues(t, 1, n, "a second put must update, never race a duplicate row")

	var contract models.Contract
	require.NoError(t, f.db.Where("project_id = ?", project.ID).First(&contract).Error)
	assert.Equal(t, 250000.0, contract.TotalProjectValue)
}
