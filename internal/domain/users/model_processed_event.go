package users

import "time"

// ProcessedEvent records a webhook event id once its effects are applied.
type ProcessedEvent struct {
	EventID     string `gorm:"primaryKey;column:event_id;type:varchar(255)"`
	EventType   string `gorm:"column:event_type;not null"`
	ProcessedAt time.Time
}
