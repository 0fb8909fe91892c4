package utils

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/pi-case-backend/pkg/models"
)

// Actor is the staff member behind an action, as shown in the work log.
// The zero Actor stands for the system.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// DisplayName is the actor's name, or "System".
func (a Actor) DisplayName() string {
	if a.Name == "" {
		return "System"
	}
	return a.Name
}

// LogWork inserts a work log entry for a case. Callers inside a
// transaction pass the tx so the entry commits with the change.
func LogWork(ctx context.Context, db *gorm.DB, entry *models.WorkLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return db.WithContext(ctx).Create(entry).Error
}

// StageEntry builds the work log entry for a stage/status change.
func StageEntry(caseID uuid.UUID, actor Actor, from, to models.StageStatus, note string) *models.WorkLogEntry {
	return &models.WorkLogEntry{
		CaseID:    caseID,
		ActorID:   actor.ID,
		ActorName: actor.DisplayName(),
		Action:    models.ActionStageChanged,
		OldStage:  from.Stage,
		OldStatus: from.Status,
		NewStage:  to.Stage,
		NewStatus: to.Status,
		Note:      note,
	}
}
