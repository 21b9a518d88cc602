package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SweepStatusSuccess = "success"
	SweepStatusPartial = "partial"
)

// CronRunLog summarises one re-engagement sweep. Errors holds a JSON array of
// per-recipient failure strings, or null when the sweep was clean.
type CronRunLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Sent30Day  int       `gorm:"column:sent_30day;not null;default:0"`
	Sent60Day  int       `gorm:"column:sent_60day;not null;default:0"`
	Errors     datatypes.JSON
	Status     string `gorm:"type:varchar(20);not null"`
	StartedAt  time.Time
	FinishedAt time.Time
	CreatedAt  time.Time
}

func (CronRunLog) TableName() string {
	return "cron_logs"
}

func (l *CronRunLog) BeforeCreate(tx *gorm.DB) (err error) {
	l.ID = uuid.New()
	return
}
