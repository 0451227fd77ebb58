package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/easysms/pkg/logger"
)

// EntryModel is the GORM persistence model for journal entries
type EntryModel struct {
	DispatchID string         `gorm:"size:36;primaryKey"`
	To         string         `gorm:"column:recipient;size:32;not null;index"`
	Succeeded  bool           `gorm:"not null"`
	Attempts   []AttemptModel `gorm:"foreignKey:DispatchID;references:DispatchID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}

// TableName overrides the default table name used by GORM.
func (EntryModel) TableName() string {
	return "easysms_dispatches"
}

// AttemptModel is one gateway attempt of a journaled dispatch
type AttemptModel struct {
	ID         uint   `gorm:"primaryKey"`
	DispatchID string `gorm:"size:36;not null;index"`
	Position   int    `gorm:"not null"`
	Gateway    string `gorm:"size:64;not null;index"`
	Status     string `gorm:"size:16;not null"`
	Code       string `gorm:"size:64"`
	Error      string `gorm:"type:text"`
	Result     string `gorm:"type:text"`
}

// TableName overrides the default table name used by GORM.
func (AttemptModel) TableName() string {
	return "easysms_dispatch_attempts"
}

// GormRecorder persists entries through GORM
type GormRecorder struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewGormRecorder migrates the journal tables and returns a recorder
func NewGormRecorder(db *gorm.DB, log logger.Logger) (*GormRecorder, error) {
	if err := db.AutoMigrate(&EntryModel{}, &AttemptModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal tables: %w", err)
	}
	return &GormRecorder{db: db, logger: logger.OrDiscard(log)}, nil
}

// Record inserts the entry and its attempts
func (g *GormRecorder) Record(ctx context.Context, entry *Entry) error {
	model, err := fromEntry(entry)
	if err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	g.logger.Debug("Journal entry recorded", "dispatch_id", entry.DispatchID)
	return nil
}

// Get loads one entry by dispatch ID
func (g *GormRecorder) Get(ctx context.Context, dispatchID string) (*Entry, error) {
	var model EntryModel
	err := g.db.WithContext(ctx).
		Preload("Attempts", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&model, "dispatch_id = ?", dispatchID).Error
	if err != nil {
		return nil, err
	}
	return toEntry(&model), nil
}

// Failed returns up to limit dispatches where no gateway succeeded, newest first
func (g *GormRecorder) Failed(ctx context.Context, limit int) ([]*Entry, error) {
	var models []EntryModel
	err := g.db.WithContext(ctx).
		Preload("Attempts", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("succeeded = ?", false).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(models))
	for i := range models {
		entries = append(entries, toEntry(&models[i]))
	}
	return entries, nil
}

// Close closes the underlying connection pool
func (g *GormRecorder) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func fromEntry(entry *Entry) (*EntryModel, error) {
	model := &EntryModel{
		DispatchID: entry.DispatchID,
		To:         entry.To,
		Succeeded:  entry.Succeeded,
		CreatedAt:  entry.CreatedAt,
		Attempts:   make([]AttemptModel, 0, len(entry.Attempts)),
	}
	for i, a := range entry.Attempts {
		var result []byte
		if a.Result != nil {
			var err error
			if result, err = json.Marshal(a.Result); err != nil {
				return nil, fmt.Errorf("failed to marshal result of %s: %w", a.Gateway, err)
			}
		}
		model.Attempts = append(model.Attempts, AttemptModel{
			DispatchID: entry.DispatchID,
			Position:   i,
			Gateway:    a.Gateway,
			Status:     a.Status,
			Code:       a.Code,
			Error:      a.Error,
			Result:     string(result),
		})
	}
	return model, nil
}

func toEntry(model *EntryModel) *Entry {
	entry := &Entry{
		DispatchID: model.DispatchID,
		To:         model.To,
		Succeeded:  model.Succeeded,
		CreatedAt:  model.CreatedAt,
		Attempts:   make([]Attempt, 0, len(model.Attempts)),
	}
	for _, a := range model.Attempts {
		attempt := Attempt{Gateway: a.Gateway, Status: a.Status, Code: a.Code, Error: a.Error}
		if a.Result != "" {
			_ = json.Unmarshal([]byte(a.Result), &attempt.Result)
		}
		entry.Attempts = append(entry.Attempts, attempt)
	}
	return entry
}
