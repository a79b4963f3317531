package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/research_go_server/internal/model"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) WithTx(tx *gorm.DB) *EventRepository {
	return &EventRepository{db: tx}
}

// MarkProcessed 记录事件，已存在时返回 false
func (r *EventRepository) MarkProcessed(provider, eventID, eventType string) (bool, error) {
	event := &model.ProcessedEvent{
		Provider:  provider,
		EventID:   eventID,
		EventType: eventType,
	}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *EventRepository) Exists(provider, eventID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.ProcessedEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Count(&count).Error
	return count > 0, err
}
