package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"revisitly-backend/logger"
	"revisitly-backend/models"
	"revisitly-backend/repository"
	"revisitly-backend/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BusinessStore interface {
	FindBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error)
	FindBusinessBySlug(ctx context.Context, slug string) (*models.Business, error)
	SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error)
	CreateBusinessWithOwner(ctx context.Context, b *models.Business, u *models.User) error
	UpdateBusinessSettings(ctx context.Context, id uuid.UUID, in repository.BusinessSettings) (*models.Business, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ListRelationships(ctx context.Context, businessID uuid.UUID) ([]models.BusinessCustomer, error)
	FindRelationship(ctx context.Context, id uuid.UUID) (*models.BusinessCustomer, error)
}

type TokenSigner interface {
	GenerateToken(userID, businessID string) (string, error)
}

type RegisterInput struct {
	BusinessName string
	Category     models.Category
	Name         string
	Email        string
	Password     string
}

type SettingsInput struct {
	Name       string
	Phone      string
	Category   models.Category
	ReviewURL  string
	WebsiteURL string
}

type Session struct {
	Token    string
	User     *models.User
	Business *models.Business
}

// BusinessService owns signup, sign-in and tenant settings.
type BusinessService struct {
	store  BusinessStore
	tokens TokenSigner
	now    func() time.Time
	log    zerolog.Logger
}

func NewBusinessService(store BusinessStore, tokens TokenSigner) *BusinessService {
	return &BusinessService{
		store:  store,
		tokens: tokens,
		now:    time.Now,
		log:    logger.For("business"),
	}
}

func (s *BusinessService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.BusinessName)
	if name == "" {
		return nil, &ValidationError{Field: "businessName", Message: "is required"}
	}
	if !utils.ValidateEmail(email) {
		return nil, &ValidationError{Field: "email", Message: "is not a valid address"}
	}
	if len(in.Password) < 8 {
		return nil, &ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}
	category := in.Category
	if category == "" {
		category = models.CategorySalon
	}
	if !category.Valid() {
		return nil, &ValidationError{Field: "category", Message: "is not a known category"}
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, &ConflictError{Message: "Email already registered"}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, upstream("check email", err)
	}

	slug, err := s.uniqueSlug(ctx, name, uuid.Nil)
	if err != nil {
		return nil, err
	}

	business := &models.Business{
		Name:     name,
		Category: category,
		Email:    email,
		Slug:     slug,
		Plan:     models.PlanStarter,
	}
	user := &models.User{
		Email:    email,
		Password: in.Password,
		Name:     strings.TrimSpace(in.Name),
	}
	if err := s.store.CreateBusinessWithOwner(ctx, business, user); err != nil {
		return nil, upstream("create business", err)
	}

	token, err := s.tokens.GenerateToken(user.ID.String(), business.ID.String())
	if err != nil {
		return nil, upstream("issue token", err)
	}
	s.log.Info().Str("business_id", business.ID.String()).Str("slug", slug).Msg("business registered")
	return &Session{Token: token, User: user, Business: business}, nil
}

func (s *BusinessService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &AuthorizationError{Reason: "invalid credentials"}
	}
	if err != nil {
		return nil, upstream("load user", err)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, &AuthorizationError{Reason: "invalid credentials"}
	}

	business, err := s.Get(ctx, user.BusinessID)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to update last login")
	}

	token, err := s.tokens.GenerateToken(user.ID.String(), business.ID.String())
	if err != nil {
		return nil, upstream("issue token", err)
	}
	return &Session{Token: token, User: user, Business: business}, nil
}

func (s *BusinessService) Me(ctx context.Context, userID uuid.UUID) (*Session, error) {
	user, err := s.store.FindUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "user"}
	}
	if err != nil {
		return nil, upstream("load user", err)
	}
	business, err := s.Get(ctx, user.BusinessID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Business: business}, nil
}

func (s *BusinessService) Get(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	b, err := s.store.FindBusiness(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "business"}
	}
	if err != nil {
		return nil, upstream("load business", err)
	}
	return b, nil
}

// FindBySlug resolves the public check-in link.
func (s *BusinessService) FindBySlug(ctx context.Context, slug string) (*models.Business, error) {
	b, err := s.store.FindBusinessBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "business"}
	}
	if err != nil {
		return nil, upstream("load business", err)
	}
	return b, nil
}

// UpdateSettings saves owner-editable fields. The slug follows the name.
func (s *BusinessService) UpdateSettings(ctx context.Context, id uuid.UUID, in SettingsInput) (*models.Business, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	category := in.Category
	if category == "" {
		category = current.Category
	}
	if !category.Valid() {
		return nil, &ValidationError{Field: "category", Message: "is not a known category"}
	}
	for field, raw := range map[string]string{"reviewUrl": in.ReviewURL, "websiteUrl": in.WebsiteURL} {
		if strings.TrimSpace(raw) != "" && safeURL(raw) == "" {
			return nil, &ValidationError{Field: field, Message: "must be an http(s) URL"}
		}
	}

	slug := current.Slug
	if name != current.Name {
		if slug, err = s.uniqueSlug(ctx, name, id); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.UpdateBusinessSettings(ctx, id, repository.BusinessSettings{
		Name:       name,
		Slug:       slug,
		Phone:      strings.TrimSpace(in.Phone),
		Category:   category,
		ReviewURL:  strings.TrimSpace(in.ReviewURL),
		WebsiteURL: strings.TrimSpace(in.WebsiteURL),
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "business"}
	}
	if err != nil {
		return nil, upstream("update business", err)
	}
	return updated, nil
}

func (s *BusinessService) ListCustomers(ctx context.Context, businessID uuid.UUID) ([]models.BusinessCustomer, error) {
	out, err := s.store.ListRelationships(ctx, businessID)
	if err != nil {
		return nil, upstream("list customers", err)
	}
	return out, nil
}

// OwnsRelationship reports whether the relationship belongs to the business.
func (s *BusinessService) OwnsRelationship(ctx context.Context, businessID, relationshipID uuid.UUID) (bool, error) {
	bc, err := s.store.FindRelationship(ctx, relationshipID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, upstream("load relationship", err)
	}
	return bc.BusinessID == businessID, nil
}

// uniqueSlug derives a slug from name, appending a short random suffix while
// the slug belongs to another business.
func (s *BusinessService) uniqueSlug(ctx context.Context, name string, self uuid.UUID) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		base = "business"
	}
	slug := base
	for attempt := 0; attempt < 5; attempt++ {
		taken, err := s.store.SlugTaken(ctx, slug, self)
		if err != nil {
			return "", upstream("check slug", err)
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + uuid.NewString()[:6]
	}
	return "", &ConflictError{Message: "Could not allocate a unique link for this business name"}
}
