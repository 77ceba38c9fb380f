package status

import (
	"testing"
	"time"

	"buildtrack/internal/database"
	"buildtrack/internal/models"

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

func newTestUpdater(db *gorm.DB) *Updater {
	u := NewUpdater(db, zap.NewNop())
	u.now = func() time.Time { return now }
	return u
}

func TestRecomputePersists(t *testing.T) {
	db := openDB(t, "updater_persists")
	u := newTestUpdater(db)

	project := models.Project{Name: "Depot", Status: models.StatusNotStarted}
	require.NoError(t, db.Create(&project).Error)
	require.NoError(t, db.Create(&models.Contract{
		ProjectID: project.ID, TotalProjectValue: 10000,
	}).Error)
	require.NoError(t, db.Create(&models.Payment{
		ProjectID: &project.ID, Payer: models.PayerOwner,
		Method: models.MethodCashDeposit, Amount: 500, Date: now.AddDate(0, 0, -3),
	}).Error)

	got := u.Recompute(project.ID)
	assert.Equal(t, models.StatusExecutionStarted, got)

	var reloaded models.Project
	require.NoError(t, db.First(&reloaded, project.ID).Error)
	assert.Equal(t, models.StatusExecutionStarted, reloaded.Status)
}

// Writing through UpdateColumn keeps recomputes idempotent: a second
// run with the same ledger changes nothing, not even UpdatedAt.
func TestRecomputeIdempotent(t *testing.T) {
	db := openDB(t, "updater_idempotent")
	u := newTestUpdater(db)

	project := models.Project{Name: "Depot", Status: models.StatusNotStarted}
	require.NoError(t, db.Create(&project).Error)
	require.NoError(t, db.Create(&models.Payment{
		ProjectID: &project.ID, Payer: models.PayerOwner,
		Method: models.MethodCashOffice, Amount: 500, Date: now.AddDate(0, 0, -3),
	}).Error)

	u.Recompute(project.ID)
	var first models.Project
	require.NoError(t, db.First(&first, project.ID).Error)

	u.Recompute(project.ID)
	var second models.Project
	require.NoError(t, db.First(&second, project.ID).Error)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestRecomputeMissingContract(t *testing.T) {
	db := openDB(t, "updater_no_contract")
	u := newTestUpdater(db)

	project := models.Project{Name: "Depot", Status: models.StatusNotStarted}
	require.NoError(t, db.Create(&project).Error)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Payment{
			ProjectID: &project.ID, Payer: models.PayerOwner,
			Method: models.MethodBankCheque, Amount: 1e6, Date: now.AddDate(0, 0, -i),
		}).Error)
	}

	// Without a contract the percentage rules stay off, however large
	// the payments.
	assert.Equal(t, models.StatusUnderExecution, u.Recompute(project.ID))
}

func TestRecomputeMissingProject(t *testing.T) {
	db := openDB(t, "updater_no_project")
	u := newTestUpdater(db)
	assert.Equal(t, models.StatusNotStarted, u.Recompute(31337))
}
