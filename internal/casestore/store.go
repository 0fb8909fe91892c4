// Package casestore is the gorm-backed record store behind the generation
// engine and the case handlers.
package casestore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/pi-case-backend/internal/bundle"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/utils"
)

var ErrCaseNotFound = errors.New("case not found")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// Load reads a case row with every relation the engine reads.
func (s *Store) Load(ctx context.Context, caseID uuid.UUID) (*models.Case, error) {
	var cs models.Case
	err := s.db.WithContext(ctx).
		Preload("Clients", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, created_at ASC") }).
		Preload("Defendants", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Providers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Bills", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Claims").
		Preload("HealthClaims").
		Preload("Mileage").
		Preload("Settlement").
		Preload("GeneralDamages").
		First(&cs, "id = ?", caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// LoadBundle loads a case and canonicalizes it.
func (s *Store) LoadBundle(ctx context.Context, caseID uuid.UUID) (bundle.Case, error) {
	cs, err := s.Load(ctx, caseID)
	if err != nil {
		return bundle.Case{}, err
	}
	return bundle.FromModel(cs), nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *models.CaseFile) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(doc).Error
}

func (s *Store) AppendWorkLog(ctx context.Context, entry *models.WorkLogEntry) error {
	return utils.LogWork(ctx, s.db, entry)
}

// UpdateStage writes the stage and status of a case. The pairing is
// checked here too so no caller can store an invalid combination.
func (s *Store) UpdateStage(ctx context.Context, caseID uuid.UUID, to models.StageStatus) error {
	if !to.Valid() {
		return errors.New("invalid stage/status: " + to.String())
	}
	res := s.db.WithContext(ctx).Model(&models.Case{}).
		Where("id = ?", caseID).
		Updates(map[string]any{
			"stage":      to.Stage,
			"status":     to.Status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCaseNotFound
	}
	return nil
}
