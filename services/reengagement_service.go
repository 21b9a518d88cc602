package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"

	"revisitly-backend/events"
	"revisitly-backend/logger"
	"revisitly-backend/metrics"
	"revisitly-backend/models"
	"revisitly-backend/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

type SweepStore interface {
	FindDueRelationships(ctx context.Context, rebookSent bool, from, to time.Time) ([]models.BusinessCustomer, error)
	ClaimRebook(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ReleaseRebook(ctx context.Context, id uuid.UUID) error
	CreateEmailLog(ctx context.Context, l *models.EmailLog) error
	CreateCronRunLog(ctx context.Context, l *models.CronRunLog) error
}

// SweepResult is the outcome of one re-engagement run. Errors is empty, never
// nil, on a clean run.
type SweepResult struct {
	Success   bool     `json:"success"`
	Sent30Day int      `json:"sent30day"`
	Sent60Day int      `json:"sent60day"`
	Errors    []string `json:"errors"`
	Status    string   `json:"status"`
}

type stage struct {
	days       int
	label      string
	rebookSent bool
	emailType  models.EmailType
}

var (
	stage30 = stage{days: 30, label: "30day", rebookSent: false, emailType: models.EmailRebook30Day}
	stage60 = stage{days: 60, label: "60day", rebookSent: true, emailType: models.EmailRebook60Day}
)

type ReengagementService struct {
	store  SweepStore
	mailer Mailer
	events events.Publisher
	secret string
	now    func() time.Time
	log    zerolog.Logger
}

// NewReengagementService wires the sweep. secret guards the HTTP trigger; an
// empty secret rejects every trigger.
func NewReengagementService(store SweepStore, mailer Mailer, pub events.Publisher, secret string) *ReengagementService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &ReengagementService{
		store:  store,
		mailer: mailer,
		events: pub,
		secret: secret,
		now:    time.Now,
		log:    logger.For("sweep"),
	}
}

// AuthorizeTrigger checks the bearer token presented by the external scheduler.
func (s *ReengagementService) AuthorizeTrigger(presented string) error {
	if s.secret == "" {
		return &AuthorizationError{Reason: "trigger secret not configured"}
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(s.secret)) != 1 {
		return &AuthorizationError{Reason: "invalid trigger secret"}
	}
	return nil
}

// Sweep sends the 30-day messages, then the 60-day messages, for visits made
// exactly 30 and 60 days before today. Per-recipient failures are collected in
// the result; only a failed candidate query aborts the run.
func (s *ReengagementService) Sweep(ctx context.Context) (SweepResult, error) {
	started := s.now().UTC()
	res := SweepResult{Errors: []string{}}

	sent, err := s.runStage(ctx, stage30, started, &res)
	if err != nil {
		return res, err
	}
	res.Sent30Day = sent

	sent, err = s.runStage(ctx, stage60, started, &res)
	if err != nil {
		return res, err
	}
	res.Sent60Day = sent

	res.Success = true
	res.Status = models.SweepStatusSuccess
	if len(res.Errors) > 0 {
		res.Status = models.SweepStatusPartial
	}
	s.persist(ctx, res, started)
	metrics.RecordSweep(res.Status)

	s.log.Info().
		Int("sent_30day", res.Sent30Day).
		Int("sent_60day", res.Sent60Day).
		Int("errors", len(res.Errors)).
		Str("status", res.Status).
		Msg("re-engagement sweep finished")

	if err := s.events.Publish(ctx, events.SweepCompleted, events.SweepCompletedEvent{
		Sent30Day: res.Sent30Day,
		Sent60Day: res.Sent60Day,
		Errors:    len(res.Errors),
		Status:    res.Status,
		At:        s.now().UTC(),
	}); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish sweep event")
	}
	return res, nil
}

func (s *ReengagementService) runStage(ctx context.Context, st stage, now time.Time, res *SweepResult) (int, error) {
	from, to := utils.DayWindow(now, st.days)
	candidates, err := s.store.FindDueRelationships(ctx, st.rebookSent, from, to)
	if err != nil {
		metrics.RecordSweep("failed")
		return 0, upstream(fmt.Sprintf("select %s candidates", st.label), err)
	}
	s.log.Debug().Str("stage", st.label).Int("candidates", len(candidates)).Msg("stage candidates selected")

	sent := 0
	for i := range candidates {
		bc := &candidates[i]
		ok, err := s.sendOne(ctx, st, bc)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s - %s: %s", st.label, bc.Customer.Email, err.Error()))
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// sendOne reports whether the message went out. A delivered message whose log
// write failed is counted as sent and also returns the log error.
func (s *ReengagementService) sendOne(ctx context.Context, st stage, bc *models.BusinessCustomer) (bool, error) {
	msg, err := composeRebook(&bc.Business, &bc.Customer, st.days)
	if err != nil {
		return false, err
	}

	if !st.rebookSent {
		claimed, err := s.store.ClaimRebook(ctx, bc.ID, s.now().UTC())
		if err != nil {
			return false, err
		}
		if !claimed {
			return false, nil
		}
	}

	msgID, err := s.mailer.Send(ctx, msg)
	if err != nil {
		metrics.RecordMessage(string(st.emailType), "email", "failed")
		if !st.rebookSent {
			if relErr := s.store.ReleaseRebook(context.WithoutCancel(ctx), bc.ID); relErr != nil {
				s.log.Error().Err(relErr).Str("relationship_id", bc.ID.String()).Msg("failed to release rebook claim")
			}
		}
		return false, err
	}
	metrics.RecordMessage(string(st.emailType), "email", "sent")

	entry := &models.EmailLog{
		BusinessCustomerID: bc.ID,
		BusinessID:         bc.BusinessID,
		Type:               st.emailType,
		Status:             models.EmailStatusSent,
		ProviderMessageID:  msgID,
	}
	if err := s.store.CreateEmailLog(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("relationship_id", bc.ID.String()).Msg("email sent but log write failed")
		return true, fmt.Errorf("sent but not recorded: %w", err)
	}
	return true, nil
}

func (s *ReengagementService) persist(ctx context.Context, res SweepResult, started time.Time) {
	entry := &models.CronRunLog{
		Sent30Day:  res.Sent30Day,
		Sent60Day:  res.Sent60Day,
		Status:     res.Status,
		StartedAt:  started,
		FinishedAt: s.now().UTC(),
	}
	if len(res.Errors) > 0 {
		raw, err := json.Marshal(res.Errors)
		if err == nil {
			entry.Errors = datatypes.JSON(raw)
		}
	}
	if err := s.store.CreateCronRunLog(ctx, entry); err != nil {
		s.log.Warn().Err(err).Msg("failed to write cron run log")
	}
}
