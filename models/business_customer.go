package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BusinessCustomer is one customer's relationship with one business. Its flags
// gate the thank-you message and the 30/60-day re-engagement messages.
type BusinessCustomer struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_customer_business,priority:1" json:"customerId"`
	BusinessID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_customer_business,priority:2;index" json:"businessId"`

	Customer Customer `gorm:"foreignKey:CustomerID" json:"customer"`
	Business Business `gorm:"foreignKey:BusinessID" json:"-"`

	LastVisit time.Time `gorm:"type:date;not null;index" json:"lastVisit"`

	FollowupSent   bool       `gorm:"not null;default:false" json:"followupSent"`
	FollowupSentAt *time.Time `json:"followupSentAt"`
	// RebookSent marks the 30-day message; it is also the precondition for the 60-day one.
	RebookSent      bool       `gorm:"not null;default:false" json:"rebookSent"`
	RebookSentAt    *time.Time `json:"rebookSentAt"`
	ReviewRequested bool       `gorm:"not null;default:false" json:"reviewRequested"`
	ReviewSentAt    *time.Time `json:"reviewSentAt"`

	Notes    string `gorm:"type:text" json:"notes"`
	Service  string `json:"service"`
	Referral string `json:"referral"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (bc *BusinessCustomer) BeforeCreate(tx *gorm.DB) (err error) {
	if bc.ID == uuid.Nil {
		bc.ID = uuid.New()
	}
	return
}
