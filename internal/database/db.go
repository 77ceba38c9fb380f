package database

import (
	"errors"
	"os"
	"time"

	"buildtrack/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(dsn string, log *zap.Logger) {
	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		log.Info("connecting to database", zap.Int("attempt", i), zap.Int("max", maxAttempts))

		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			log.Info("connected to database")
			break
		}

		log.Warn("database connection failed", zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatal("could not connect to database", zap.Int("attempts", maxAttempts), zap.Error(err))
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	if err := Seed(DB, log); err != nil {
		log.Fatal("seeding failed", zap.Error(err))
	}
}

// Migrate creates or updates the schema. Shared with the test setup.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.Permission{},
		&models.Role{},
		&models.User{},
		&models.WorkflowStage{},
		&models.WorkflowRule{},
		&models.Project{},
		&models.Contract{},
		&models.Payment{},
		&models.Variation{},
		&models.AuditLog{},
		&models.PendingChange{},
	)
}

// Seed installs the permission catalog, default roles, the stage
// pipeline with its rules, and the platform superuser. Idempotent:
// existing rows are left alone.
func Seed(db *gorm.DB, log *zap.Logger) error {
	if err := seedPermissions(db); err != nil {
		return err
	}
	if err := seedRoles(db); err != nil {
		return err
	}
	if err := seedStages(db); err != nil {
		return err
	}
	return createDefaultAdmin(db, log)
}

var defaultPermissions = []models.Permission{
	{Code: models.PermProjectCreate, Name: "Create project", Category: "project"},
	{Code: models.PermProjectEdit, Name: "Edit project", Category: "project"},
	{Code: models.PermProjectSubmit, Name: "Submit project for approval", Category: "project"},
	{Code: models.PermProjectApprove, Name: "Approve project stage", Category: "project"},
	{Code: models.PermProjectReject, Name: "Reject project stage", Category: "project"},
	{Code: models.PermProjectDeleteRequest, Name: "Request project deletion", Category: "project"},
	{Code: models.PermProjectDeleteApprove, Name: "Approve project deletion", Category: "project"},
	{Code: models.PermContractManage, Name: "Manage contracts", Category: "finance"},
	{Code: models.PermPaymentManage, Name: "Manage payments", Category: "finance"},
	{Code: models.PermFinanceView, Name: "View financial data", Category: "finance"},
	{Code: models.PermAuditView, Name: "View audit log", Category: "admin"},
}

func seedPermissions(db *gorm.DB) error {
	for _, p := range defaultPermissions {
		var count int64
		if err := db.Model(&models.Permission{}).Where("code = ?", p.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}

var defaultRoles = []struct {
	Name  string
	Kind  models.RoleKind
	Perms []string
}{
	{
		Name: "company_admin",
		Kind: models.RoleKindAdmin,
		Perms: []string{
			models.PermProjectCreate, models.PermProjectEdit, models.PermProjectSubmit,
			models.PermProjectApprove, models.PermProjectReject,
			models.PermProjectDeleteRequest, models.PermProjectDeleteApprove,
			models.PermContractManage, models.PermPaymentManage,
			models.PermFinanceView, models.PermAuditView,
		},
	},
	{
		Name: "project_manager",
		Kind: models.RoleKindManager,
		Perms: []string{
			models.PermProjectCreate, models.PermProjectEdit, models.PermProjectSubmit,
			models.PermProjectApprove, models.PermProjectReject,
			models.PermProjectDeleteRequest,
			models.PermContractManage, models.PermPaymentManage, models.PermFinanceView,
		},
	},
	{
		Name: "site_staff",
		Kind: models.RoleKindStaff,
		Perms: []string{
			models.PermProjectCreate, models.PermProjectEdit, models.PermProjectSubmit,
		},
	},
}

func seedRoles(db *gorm.DB) error {
	for _, r := range defaultRoles {
		var count int64
		if err := db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		var perms []models.Permission
		if err := db.Where("code IN ?", r.Perms).Find(&perms).Error; err != nil {
			return err
		}
		role := models.Role{Name: r.Name, Kind: r.Kind, IsActive: true, Permissions: perms}
		if err := db.Create(&role).Error; err != nil {
			return err
		}
	}
	return nil
}

var defaultStages = []models.WorkflowStage{
	{Code: "stage_1", Name: "Data Entry", SortOrder: 1, IsActive: true},
	{Code: "stage_2", Name: "Review", SortOrder: 2, IsActive: true},
	{Code: "stage_3", Name: "Execution", SortOrder: 3, IsActive: true},
}

var stageActionPerms = map[models.WorkflowAction]string{
	models.ActionCreate:        models.PermProjectCreate,
	models.ActionEdit:          models.PermProjectEdit,
	models.ActionSubmit:        models.PermProjectSubmit,
	models.ActionApprove:       models.PermProjectApprove,
	models.ActionReject:        models.PermProjectReject,
	models.ActionDeleteRequest: models.PermProjectDeleteRequest,
	models.ActionDeleteApprove: models.PermProjectDeleteApprove,
}

func seedStages(db *gorm.DB) error {
	for _, s := range defaultStages {
		var stage models.WorkflowStage
		err := db.Where("code = ?", s.Code).First(&stage).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			stage = s
			if err := db.Create(&stage).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		for action, permCode := range stageActionPerms {
			var count int64
			if err := db.Model(&models.WorkflowRule{}).
				Where("stage_id = ? AND action = ?", stage.ID, action).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			var perm models.Permission
			if err := db.Where("code = ?", permCode).First(&perm).Error; err != nil {
				return err
			}
			rule := models.WorkflowRule{
				StageID:              stage.ID,
				Action:               action,
				RequiredPermissionID: perm.ID,
				IsActive:             true,
			}
			if err := db.Create(&rule).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// The platform superuser comes from env only, never from the API.
func createDefaultAdmin(db *gorm.DB, log *zap.Logger) error {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@buildtrack.local"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123!"
	}

	var count int64
	if err := db.Model(&models.User{}).Where("is_superuser = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Info("created platform superuser", zap.String("email", email))
	return nil
}
