package services

import (
	"context"
	"errors"
	"time"

	"revisitly-backend/events"
	"revisitly-backend/logger"
	"revisitly-backend/metrics"
	"revisitly-backend/models"
	"revisitly-backend/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FollowupStore is the slice of the record store the dispatcher needs.
type FollowupStore interface {
	FindRelationship(ctx context.Context, id uuid.UUID) (*models.BusinessCustomer, error)
	ClaimFollowup(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ReleaseFollowup(ctx context.Context, id uuid.UUID) error
	MarkReviewRequested(ctx context.Context, id uuid.UUID, at time.Time) error
	CreateEmailLog(ctx context.Context, l *models.EmailLog) error
}

// FollowupService sends the one-time thank-you and review request for a
// relationship.
type FollowupService struct {
	store  FollowupStore
	mailer Mailer
	sms    SMSSender
	events events.Publisher
	now    func() time.Time
	log    zerolog.Logger
}

// NewFollowupService wires the dispatcher. sms may be nil to disable texts.
func NewFollowupService(store FollowupStore, mailer Mailer, sms SMSSender, pub events.Publisher) *FollowupService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &FollowupService{
		store:  store,
		mailer: mailer,
		sms:    sms,
		events: pub,
		now:    time.Now,
		log:    logger.For("followup"),
	}
}

func (s *FollowupService) load(ctx context.Context, id uuid.UUID) (*models.BusinessCustomer, error) {
	bc, err := s.store.FindRelationship(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "customer"}
	}
	if err != nil {
		return nil, upstream("load relationship", err)
	}
	if bc.Customer.Email == "" {
		return nil, &ValidationError{Field: "email", Message: "customer has no email"}
	}
	return bc, nil
}

// Dispatch sends the thank-you email at most once per relationship. A
// relationship that was already followed up yields ErrAlreadyDispatched.
func (s *FollowupService) Dispatch(ctx context.Context, relationshipID uuid.UUID) error {
	bc, err := s.load(ctx, relationshipID)
	if err != nil {
		return err
	}
	if bc.FollowupSent {
		return ErrAlreadyDispatched
	}
	msg, err := composeThankYou(&bc.Business, &bc.Customer, bc.Service)
	if err != nil {
		return err
	}

	claimed, err := s.store.ClaimFollowup(ctx, bc.ID, s.now().UTC())
	if err != nil {
		return upstream("claim follow-up", err)
	}
	if !claimed {
		return ErrAlreadyDispatched
	}

	msgID, err := s.mailer.Send(ctx, msg)
	if err != nil {
		metrics.RecordMessage(string(models.EmailCheckinThankYou), "email", "failed")
		if relErr := s.store.ReleaseFollowup(context.WithoutCancel(ctx), bc.ID); relErr != nil {
			s.log.Error().Err(relErr).Str("relationship_id", bc.ID.String()).Msg("failed to release follow-up claim")
		}
		return upstream("send thank-you", err)
	}
	metrics.RecordMessage(string(models.EmailCheckinThankYou), "email", "sent")

	if err := s.record(ctx, bc, models.EmailCheckinThankYou, msgID); err != nil {
		return err
	}
	s.sendSMS(ctx, bc)
	return nil
}

// SendReminder is the owner-triggered follow-up. A relationship that has not
// been followed up gets the regular thank-you; otherwise a review reminder.
func (s *FollowupService) SendReminder(ctx context.Context, relationshipID uuid.UUID) error {
	bc, err := s.load(ctx, relationshipID)
	if err != nil {
		return err
	}
	if !bc.FollowupSent {
		err := s.Dispatch(ctx, relationshipID)
		if !errors.Is(err, ErrAlreadyDispatched) {
			return err
		}
	}

	msg, err := composeReminder(&bc.Business, &bc.Customer)
	if err != nil {
		return err
	}
	msgID, err := s.mailer.Send(ctx, msg)
	if err != nil {
		metrics.RecordMessage(string(models.EmailFollowup), "email", "failed")
		return upstream("send reminder", err)
	}
	metrics.RecordMessage(string(models.EmailFollowup), "email", "sent")

	if err := s.store.MarkReviewRequested(ctx, bc.ID, s.now().UTC()); err != nil {
		return &SentNotRecordedError{RelationshipID: bc.ID, Type: models.EmailFollowup, Err: err}
	}
	return s.record(ctx, bc, models.EmailFollowup, msgID)
}

func (s *FollowupService) record(ctx context.Context, bc *models.BusinessCustomer, t models.EmailType, msgID string) error {
	entry := &models.EmailLog{
		BusinessCustomerID: bc.ID,
		BusinessID:         bc.BusinessID,
		Type:               t,
		Status:             models.EmailStatusSent,
		ProviderMessageID:  msgID,
	}
	if err := s.store.CreateEmailLog(ctx, entry); err != nil {
		s.log.Error().Err(err).
			Str("relationship_id", bc.ID.String()).
			Str("type", string(t)).
			Msg("email sent but log write failed")
		return &SentNotRecordedError{RelationshipID: bc.ID, Type: t, Err: err}
	}

	if err := s.events.Publish(ctx, events.MessageSent, events.MessageSentEvent{
		BusinessID:     bc.BusinessID.String(),
		RelationshipID: bc.ID.String(),
		Type:           string(t),
		Channel:        "email",
	}); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish message event")
	}
	return nil
}

func (s *FollowupService) sendSMS(ctx context.Context, bc *models.BusinessCustomer) {
	if s.sms == nil || bc.Customer.Phone == "" || !bc.Business.Plan.AllowsSMS() {
		return
	}
	sid, err := s.sms.SendSMS(ctx, bc.Customer.Phone, thankYouSMS(&bc.Business, &bc.Customer))
	if err != nil {
		metrics.RecordMessage(string(models.EmailCheckinThankYou), "sms", "failed")
		s.log.Warn().Err(err).Str("relationship_id", bc.ID.String()).Msg("thank-you sms failed")
		return
	}
	metrics.RecordMessage(string(models.EmailCheckinThankYou), "sms", "sent")
	s.log.Info().Str("relationship_id", bc.ID.String()).Str("sid", sid).Msg("thank-you sms sent")
}
