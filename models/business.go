package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is the kind of local business a tenant runs.
type Category string

const (
	CategorySalon      Category = "salon"
	CategoryClinic     Category = "clinic"
	CategoryTrade      Category = "trade"
	CategorySpa        Category = "spa"
	CategoryRestaurant Category = "restaurant"
	CategoryTakeout    Category = "takeout"
	CategoryOther      Category = "other"
)

var categories = []Category{
	CategorySalon, CategoryClinic, CategoryTrade, CategorySpa,
	CategoryRestaurant, CategoryTakeout, CategoryOther,
}

// Categories lists every accepted business category.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// Plan is the subscription tier recorded for a business. It is only ever
// changed by signup (starter) and by billing events.
type Plan string

const (
	PlanStarter   Plan = "starter"
	PlanGrowth    Plan = "growth"
	PlanPro       Plan = "pro"
	PlanCancelled Plan = "cancelled"
	PlanInactive  Plan = "inactive"
)

// Active reports whether the plan grants access to the owner dashboard.
func (p Plan) Active() bool {
	switch p {
	case PlanStarter, PlanGrowth, PlanPro:
		return true
	default:
		return false
	}
}

// AllowsSMS reports whether follow-ups may also go out over SMS.
func (p Plan) AllowsSMS() bool {
	return p == PlanGrowth || p == PlanPro
}

// MonthlyCustomerLimit is the advertised customer allowance; 0 means unlimited
// and -1 means no active plan.
func (p Plan) MonthlyCustomerLimit() int {
	switch p {
	case PlanStarter:
		return 50
	case PlanGrowth:
		return 200
	case PlanPro:
		return 0
	default:
		return -1
	}
}

type Business struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;index" json:"ownerId"`

	Name       string   `gorm:"not null" json:"name"`
	Category   Category `gorm:"type:varchar(20);not null;default:'salon'" json:"category"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	ReviewURL  string   `json:"reviewUrl"`
	WebsiteURL string   `json:"websiteUrl"`
	Slug       string   `gorm:"uniqueIndex;not null" json:"slug"`

	Plan                 Plan   `gorm:"type:varchar(20);not null;default:'starter'" json:"plan"`
	StripeCustomerID     string `gorm:"index" json:"-"`
	StripeSubscriptionID string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Business) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Plan == "" {
		b.Plan = PlanStarter
	}
	if b.Category == "" {
		b.Category = CategorySalon
	}
	return
}
