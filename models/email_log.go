// models/email_log.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmailType string

const (
	EmailCheckinThankYou EmailType = "checkin_thankyou"
	EmailRebook30Day     EmailType = "rebook_30day"
	EmailRebook60Day     EmailType = "rebook_60day"
	EmailFollowup        EmailType = "followup"
)

const EmailStatusSent = "sent"

// EmailLog is a write-once audit row for one dispatched message.
type EmailLog struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key"`
	BusinessCustomerID uuid.UUID `gorm:"type:uuid;index;not null"`
	BusinessID         uuid.UUID `gorm:"type:uuid;index;not null"`
	Type               EmailType `gorm:"type:varchar(20);not null"`
	Status             string    `gorm:"type:varchar(20);not null"`
	ProviderMessageID  string
	CreatedAt          time.Time
}

func (l *EmailLog) BeforeCreate(tx *gorm.DB) (err error) {
	l.ID = uuid.New()
	return
}
