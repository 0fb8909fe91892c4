package casestore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/aldoetobex/pi-case-backend/pkg/models"
)

// openTestDB opens TEST_DATABASE_URL, migrates, and truncates after the test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	work_log_entries,
	case_files,
	general_damages,
	settlements,
	mileage_entries,
	health_claims,
	claims,
	bills,
	providers,
	defendants,
	clients,
	cases,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})
	return db
}

func TestLoadBundle(t *testing.T) {
	db := openTestDB(t)
	s := New(db)
	ctx := context.Background()

	dol := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cs := models.Case{Title: "Smith v. Doe", DateOfLoss: &dol, Stage: models.StageIntake, Status: "New Lead"}
	require.NoError(t, db.Create(&cs).Error)

	passenger := models.Client{CaseID: cs.ID, Position: 1, Details: datatypes.JSONMap{"firstName": "Ann", "lastName": "Smith"}}
	driver := models.Client{CaseID: cs.ID, Position: 0, IsDriver: true, FirstName: "Bob", LastName: "Smith"}
	require.NoError(t, db.Create(&passenger).Error)
	require.NoError(t, db.Create(&driver).Error)

	prov := models.Provider{CaseID: cs.ID, Name: "Spine Clinic", Email: "records@spine.test"}
	require.NoError(t, db.Create(&prov).Error)
	require.NoError(t, db.Create(&models.Bill{
		CaseID: cs.ID, ClientID: driver.ID, ProviderID: prov.ID,
		AmountBilled: decimal.NewNullDecimal(decimal.NewFromInt(1200)),
	}).Error)

	b, err := s.LoadBundle(ctx, cs.ID)
	require.NoError(t, err)
	require.Len(t, b.Clients, 2)
	assert.Equal(t, "Bob", b.Clients[0].FirstName)
	assert.Equal(t, "Ann", b.Clients[1].FirstName, "camelCase details are canonicalized")
	require.Len(t, b.Bills, 1)
	assert.True(t, b.Bills[0].AmountBilled.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, "records@spine.test", b.Providers[0].Email)
}

func TestLoadBundle_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := New(db).LoadBundle(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestUpdateStage(t *testing.T) {
	db := openTestDB(t)
	s := New(db)
	ctx := context.Background()

	cs := models.Case{Title: "T", Stage: models.StageIntake, Status: "New Lead"}
	require.NoError(t, db.Create(&cs).Error)

	require.NoError(t, s.UpdateStage(ctx, cs.ID, models.StageStatus{Stage: models.StageDemand, Status: "Demand Sent"}))
	var got models.Case
	require.NoError(t, db.First(&got, "id = ?", cs.ID).Error)
	assert.Equal(t, models.StageDemand, got.Stage)
	assert.Equal(t, "Demand Sent", got.Status)

	err := s.UpdateStage(ctx, cs.ID, models.StageStatus{Stage: models.StageDemand, Status: "Closed"})
	assert.Error(t, err)

	err = s.UpdateStage(ctx, uuid.New(), models.StageStatus{Stage: models.StageDemand, Status: "Demand Sent"})
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestCreateDocumentAndWorkLog(t *testing.T) {
	db := openTestDB(t)
	s := New(db)
	ctx := context.Background()

	cs := models.Case{Title: "T", Stage: models.StageIntake, Status: "New Lead"}
	require.NoError(t, db.Create(&cs).Error)

	doc := &models.CaseFile{
		CaseID: cs.ID, Key: "case/x/a.pdf", Filename: "a.pdf",
		Mime: "application/pdf", Size: 3, Category: models.CategoryGenerated,
	}
	require.NoError(t, s.CreateDocument(ctx, doc))
	assert.NotEqual(t, uuid.Nil, doc.ID)

	require.NoError(t, s.AppendWorkLog(ctx, &models.WorkLogEntry{
		CaseID: cs.ID, ActorName: "System", Action: models.ActionDocumentGenerated, Note: "Generated a.pdf",
	}))
	var n int64
	require.NoError(t, db.Model(&models.WorkLogEntry{}).Where("case_id = ?", cs.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}
