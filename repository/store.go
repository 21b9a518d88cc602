package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"revisitly-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

// Store is the Postgres-backed record store. Every write is a single
// statement except CreateBusinessWithOwner.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for migrations and health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Visit is one recorded check-in for a (customer, business) pair.
type Visit struct {
	CustomerID uuid.UUID
	BusinessID uuid.UUID
	Day        time.Time
	Notes      string
	Service    string
	Referral   string
}

// BusinessSettings carries the owner-editable business fields.
type BusinessSettings struct {
	Name       string
	Slug       string
	Phone      string
	Category   models.Category
	ReviewURL  string
	WebsiteURL string
}

func (s *Store) FindBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	var b models.Business
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *Store) FindBusinessBySlug(ctx context.Context, slug string) (*models.Business, error) {
	var b models.Business
	if err := s.db.WithContext(ctx).First(&b, "slug = ?", slug).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (s *Store) FindBusinessByStripeCustomer(ctx context.Context, customerID string) (*models.Business, error) {
	var b models.Business
	if err := s.db.WithContext(ctx).First(&b, "stripe_customer_id = ?", customerID).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// SlugTaken reports whether another business already uses slug.
func (s *Store) SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Business{}).
		Where("slug = ? AND id <> ?", slug, except).
		Count(&count).Error
	return count > 0, err
}

// CreateBusinessWithOwner inserts a new tenant and its owner account together.
func (s *Store) CreateBusinessWithOwner(ctx context.Context, b *models.Business, u *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		b.OwnerID = u.ID
		u.BusinessID = b.ID
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("create business: %w", err)
		}
		if err := tx.Create(u).Error; err != nil {
			return fmt.Errorf("create owner: %w", err)
		}
		return nil
	})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login", at).Error
}

func (s *Store) UpdateBusinessSettings(ctx context.Context, id uuid.UUID, in BusinessSettings) (*models.Business, error) {
	res := s.db.WithContext(ctx).Model(&models.Business{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":        in.Name,
			"slug":        in.Slug,
			"phone":       in.Phone,
			"category":    in.Category,
			"review_url":  in.ReviewURL,
			"website_url": in.WebsiteURL,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindBusiness(ctx, id)
}

// UpdateBusinessPlan sets the plan and, when subscriptionID is non-empty,
// the provider subscription id.
func (s *Store) UpdateBusinessPlan(ctx context.Context, id uuid.UUID, plan models.Plan, subscriptionID string) error {
	fields := map[string]interface{}{"plan": plan}
	if subscriptionID != "" {
		fields["stripe_subscription_id"] = subscriptionID
	}
	res := s.db.WithContext(ctx).Model(&models.Business{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStripeCustomer records the provider customer id unless one is already stored.
func (s *Store) SetStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error {
	return s.db.WithContext(ctx).Model(&models.Business{}).
		Where("id = ? AND (stripe_customer_id IS NULL OR stripe_customer_id = '')", id).
		Update("stripe_customer_id", customerID).Error
}

// UpsertCustomer finds the customer by exact email, creating it if needed, and
// overwrites name and phone with the latest values.
func (s *Store) UpsertCustomer(ctx context.Context, name, email, phone string) (*models.Customer, error) {
	c := models.Customer{Name: name, Email: email, Phone: phone}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "updated_at"}),
	}).Create(&c).Error
	if err != nil {
		return nil, err
	}

	var saved models.Customer
	if err := s.db.WithContext(ctx).First(&saved, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return &saved, nil
}

// UpsertRelationship records a visit on the (customer, business) pair. Flags
// are left untouched on an existing row.
func (s *Store) UpsertRelationship(ctx context.Context, v Visit) (*models.BusinessCustomer, error) {
	bc := models.BusinessCustomer{
		CustomerID: v.CustomerID,
		BusinessID: v.BusinessID,
		LastVisit:  v.Day,
		Notes:      v.Notes,
		Service:    v.Service,
		Referral:   v.Referral,
	}
	err := s.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "business_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_visit", "notes", "service", "referral", "updated_at"}),
	}).Create(&bc).Error
	if err != nil {
		return nil, err
	}

	var saved models.BusinessCustomer
	err = s.db.WithContext(ctx).Preload("Customer").Preload("Business").
		First(&saved, "customer_id = ? AND business_id = ?", v.CustomerID, v.BusinessID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &saved, nil
}

func (s *Store) FindRelationship(ctx context.Context, id uuid.UUID) (*models.BusinessCustomer, error) {
	var bc models.BusinessCustomer
	err := s.db.WithContext(ctx).Preload("Customer").Preload("Business").First(&bc, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &bc, nil
}

// ListRelationships returns a business's customers, most recent visit first.
func (s *Store) ListRelationships(ctx context.Context, businessID uuid.UUID) ([]models.BusinessCustomer, error) {
	var out []models.BusinessCustomer
	err := s.db.WithContext(ctx).Preload("Customer").
		Where("business_id = ?", businessID).
		Order("last_visit DESC").Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ClaimFollowup flips followup_sent from false to true in one statement and
// reports whether this caller won the flag.
func (s *Store) ClaimFollowup(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.BusinessCustomer{}).
		Where("id = ? AND followup_sent = ?", id, false).
		Updates(map[string]interface{}{
			"followup_sent":    true,
			"followup_sent_at": at,
			"review_requested": true,
			"review_sent_at":   at,
		})
	return res.RowsAffected == 1, res.Error
}

// ReleaseFollowup reverts a claim whose message could not be sent.
func (s *Store) ReleaseFollowup(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.BusinessCustomer{}).
		Where("id = ? AND followup_sent = ?", id, true).
		Updates(map[string]interface{}{
			"followup_sent":    false,
			"followup_sent_at": nil,
			"review_requested": false,
			"review_sent_at":   nil,
		}).Error
}

// ClaimRebook flips rebook_sent from false to true in one statement.
func (s *Store) ClaimRebook(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.BusinessCustomer{}).
		Where("id = ? AND rebook_sent = ?", id, false).
		Updates(map[string]interface{}{
			"rebook_sent":    true,
			"rebook_sent_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (s *Store) ReleaseRebook(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.BusinessCustomer{}).
		Where("id = ? AND rebook_sent = ?", id, true).
		Updates(map[string]interface{}{
			"rebook_sent":    false,
			"rebook_sent_at": nil,
		}).Error
}

func (s *Store) MarkReviewRequested(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.BusinessCustomer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"review_requested": true,
			"review_sent_at":   at,
		}).Error
}

// FindDueRelationships selects followed-up relationships whose rebook flag
// equals rebookSent and whose last visit falls in (from, to].
func (s *Store) FindDueRelationships(ctx context.Context, rebookSent bool, from, to time.Time) ([]models.BusinessCustomer, error) {
	var out []models.BusinessCustomer
	err := s.db.WithContext(ctx).
		Preload("Customer").Preload("Business").
		Joins("JOIN customers ON customers.id = business_customers.customer_id").
		Where("business_customers.followup_sent = ?", true).
		Where("business_customers.rebook_sent = ?", rebookSent).
		Where("customers.email IS NOT NULL AND customers.email <> ''").
		Where("business_customers.last_visit > ? AND business_customers.last_visit <= ?", from, to).
		Order("business_customers.created_at").
		Find(&out).Error
	return out, err
}

func (s *Store) CreateEmailLog(ctx context.Context, l *models.EmailLog) error {
	return s.db.WithContext(ctx).Create(l).Error
}

func (s *Store) CreateCronRunLog(ctx context.Context, l *models.CronRunLog) error {
	return s.db.WithContext(ctx).Create(l).Error
}
