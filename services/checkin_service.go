package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"revisitly-backend/events"
	"revisitly-backend/logger"
	"revisitly-backend/models"
	"revisitly-backend/repository"
	"revisitly-backend/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CheckinStore interface {
	FindBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error)
	UpsertCustomer(ctx context.Context, name, email, phone string) (*models.Customer, error)
	UpsertRelationship(ctx context.Context, v repository.Visit) (*models.BusinessCustomer, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, relationshipID uuid.UUID) error
}

// CheckinInput is one visit submission. BusinessName is informational; the
// stored business name is used in messages.
type CheckinInput struct {
	BusinessID   string
	BusinessName string
	Name         string
	Email        string
	Phone        string
	Service      string
	Referral     string
}

type CheckinService struct {
	store      CheckinStore
	dispatcher Dispatcher
	events     events.Publisher
	now        func() time.Time
	log        zerolog.Logger
}

func NewCheckinService(store CheckinStore, dispatcher Dispatcher, pub events.Publisher) *CheckinService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &CheckinService{
		store:      store,
		dispatcher: dispatcher,
		events:     pub,
		now:        time.Now,
		log:        logger.For("checkin"),
	}
}

// Checkin records the visit and sends the thank-you before returning. A
// dispatch failure fails the whole check-in.
func (s *CheckinService) Checkin(ctx context.Context, in CheckinInput) (*models.BusinessCustomer, error) {
	bc, err := s.RecordVisit(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.dispatcher.Dispatch(ctx, bc.ID); err != nil && !errors.Is(err, ErrAlreadyDispatched) {
		s.log.Error().Err(err).
			Str("business_id", bc.BusinessID.String()).
			Str("relationship_id", bc.ID.String()).
			Msg("check-in follow-up failed")
		return nil, err
	}

	if err := s.events.Publish(ctx, events.CheckinRecorded, events.CheckinRecordedEvent{
		BusinessID:     bc.BusinessID.String(),
		RelationshipID: bc.ID.String(),
		CustomerEmail:  bc.Customer.Email,
		Visit:          bc.LastVisit,
	}); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish check-in event")
	}
	return bc, nil
}

// RecordVisit upserts the customer and the relationship without sending
// anything.
func (s *CheckinService) RecordVisit(ctx context.Context, in CheckinInput) (*models.BusinessCustomer, error) {
	in = normalize(in)
	businessID, err := validateCheckin(in)
	if err != nil {
		return nil, err
	}

	business, err := s.store.FindBusiness(ctx, businessID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "business"}
	}
	if err != nil {
		return nil, upstream("load business", err)
	}

	customer, err := s.store.UpsertCustomer(ctx, in.Name, in.Email, in.Phone)
	if err != nil {
		return nil, upstream("upsert customer", err)
	}

	bc, err := s.store.UpsertRelationship(ctx, repository.Visit{
		CustomerID: customer.ID,
		BusinessID: business.ID,
		Day:        utils.Today(s.now()),
		Notes:      buildNotes(in.Service, in.Referral),
		Service:    in.Service,
		Referral:   in.Referral,
	})
	if err != nil {
		return nil, upstream("upsert relationship", err)
	}

	s.log.Info().
		Str("business_id", business.ID.String()).
		Str("relationship_id", bc.ID.String()).
		Msg("visit recorded")
	return bc, nil
}

func normalize(in CheckinInput) CheckinInput {
	in.BusinessID = strings.TrimSpace(in.BusinessID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Service = strings.TrimSpace(in.Service)
	in.Referral = strings.TrimSpace(in.Referral)
	return in
}

func validateCheckin(in CheckinInput) (uuid.UUID, error) {
	switch {
	case in.BusinessID == "":
		return uuid.Nil, &ValidationError{Field: "businessId", Message: "is required"}
	case in.Name == "":
		return uuid.Nil, &ValidationError{Field: "name", Message: "is required"}
	case in.Email == "":
		return uuid.Nil, &ValidationError{Field: "email", Message: "is required"}
	}
	id, err := uuid.Parse(in.BusinessID)
	if err != nil {
		return uuid.Nil, &ValidationError{Field: "businessId", Message: "is not a valid id"}
	}
	if !utils.ValidateEmail(in.Email) {
		return uuid.Nil, &ValidationError{Field: "email", Message: "is not a valid address"}
	}
	return id, nil
}

// buildNotes renders "Service: X | Referral: Y", omitting absent parts.
func buildNotes(service, referral string) string {
	var parts []string
	if service != "" {
		parts = append(parts, "Service: "+service)
	}
	if referral != "" {
		parts = append(parts, "Referral: "+referral)
	}
	return strings.Join(parts, " | ")
}
