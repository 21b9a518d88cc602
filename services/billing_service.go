package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"revisitly-backend/events"
	"revisitly-backend/logger"
	"revisitly-backend/metrics"
	"revisitly-backend/models"
	"revisitly-backend/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const businessIDKey = "businessId"

type BillingStore interface {
	FindBusiness(ctx context.Context, id uuid.UUID) (*models.Business, error)
	FindBusinessByStripeCustomer(ctx context.Context, customerID string) (*models.Business, error)
	UpdateBusinessPlan(ctx context.Context, id uuid.UUID, plan models.Plan, subscriptionID string) error
	SetStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error
}

// SubscriptionFetcher loads a subscription from the payment provider.
type SubscriptionFetcher interface {
	FetchSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

type StripeSubscriptions struct {
	api *client.API
}

func NewStripeSubscriptions(secretKey string) *StripeSubscriptions {
	return &StripeSubscriptions{api: client.New(secretKey, nil)}
}

func (s *StripeSubscriptions) FetchSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return s.api.Subscriptions.Get(id, params)
}

// PriceMap maps provider price ids to plans.
type PriceMap map[string]models.Plan

// PlanFor returns the plan for a price id. Unknown prices map to starter.
func (m PriceMap) PlanFor(priceID string) models.Plan {
	if plan, ok := m[priceID]; ok && priceID != "" {
		return plan
	}
	return models.PlanStarter
}

// Projection describes what an event did to a business plan.
type Projection struct {
	BusinessID uuid.UUID
	Plan       models.Plan
	Applied    bool
}

type BillingService struct {
	store   BillingStore
	fetcher SubscriptionFetcher
	prices  PriceMap
	events  events.Publisher
	log     zerolog.Logger
}

func NewBillingService(store BillingStore, fetcher SubscriptionFetcher, prices PriceMap, pub events.Publisher) *BillingService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &BillingService{
		store:   store,
		fetcher: fetcher,
		prices:  prices,
		events:  pub,
		log:     logger.For("billing"),
	}
}

// HandleEvent projects a verified payment event onto the business plan.
// Unsupported and unresolvable events are acknowledged without change.
func (s *BillingService) HandleEvent(ctx context.Context, event stripe.Event) (Projection, error) {
	eventType := string(event.Type)
	var (
		p   Projection
		err error
	)
	switch eventType {
	case "checkout.session.completed":
		p, err = s.checkoutCompleted(ctx, event)
	case "customer.subscription.created":
		p, err = s.subscriptionChanged(ctx, event, func(sub *stripe.Subscription) models.Plan {
			return s.planOf(sub)
		})
	case "customer.subscription.updated":
		p, err = s.subscriptionChanged(ctx, event, func(sub *stripe.Subscription) models.Plan {
			if sub.Status == stripe.SubscriptionStatusActive {
				return s.planOf(sub)
			}
			return models.PlanInactive
		})
	case "customer.subscription.deleted":
		p, err = s.subscriptionChanged(ctx, event, func(*stripe.Subscription) models.Plan {
			return models.PlanCancelled
		})
	default:
		metrics.RecordBillingEvent(eventType, "ignored")
		return Projection{}, nil
	}

	switch {
	case err != nil:
		metrics.RecordBillingEvent(eventType, "failed")
		s.log.Error().Err(err).Str("event_id", event.ID).Str("type", eventType).Msg("billing event failed")
		return p, err
	case !p.Applied:
		metrics.RecordBillingEvent(eventType, "unresolved")
		s.log.Warn().Str("event_id", event.ID).Str("type", eventType).Msg("billing event matched no business")
		return p, nil
	}

	metrics.RecordBillingEvent(eventType, "applied")
	s.log.Info().
		Str("event_id", event.ID).
		Str("type", eventType).
		Str("business_id", p.BusinessID.String()).
		Str("plan", string(p.Plan)).
		Msg("plan updated")
	if err := s.events.Publish(ctx, events.PlanChanged, events.PlanChangedEvent{
		BusinessID: p.BusinessID.String(),
		Plan:       string(p.Plan),
		EventType:  eventType,
	}); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish plan event")
	}
	return p, nil
}

func (s *BillingService) checkoutCompleted(ctx context.Context, event stripe.Event) (Projection, error) {
	var sess stripe.CheckoutSession
	if err := decode(event, &sess); err != nil {
		return Projection{}, err
	}
	if sess.Subscription == nil || sess.Subscription.ID == "" {
		return Projection{}, nil
	}
	if s.fetcher == nil {
		return Projection{}, upstream("fetch subscription", errors.New("payment provider client not configured"))
	}
	sub, err := s.fetcher.FetchSubscription(ctx, sess.Subscription.ID)
	if err != nil {
		return Projection{}, upstream("fetch subscription", err)
	}

	customerID := customerOf(sess.Customer)
	if customerID == "" {
		customerID = customerOf(sub.Customer)
	}
	business, err := s.resolve(ctx, customerID, sess.Metadata, sub.Metadata)
	if err != nil || business == nil {
		return Projection{}, err
	}

	plan := s.planOf(sub)
	if err := s.apply(ctx, business.ID, plan, sub.ID); err != nil {
		return Projection{}, err
	}
	if customerID != "" {
		if err := s.store.SetStripeCustomer(ctx, business.ID, customerID); err != nil {
			return Projection{}, upstream("record payment customer", err)
		}
	}
	return Projection{BusinessID: business.ID, Plan: plan, Applied: true}, nil
}

func (s *BillingService) subscriptionChanged(ctx context.Context, event stripe.Event, planFor func(*stripe.Subscription) models.Plan) (Projection, error) {
	var sub stripe.Subscription
	if err := decode(event, &sub); err != nil {
		return Projection{}, err
	}
	business, err := s.resolve(ctx, customerOf(sub.Customer), sub.Metadata)
	if err != nil || business == nil {
		return Projection{}, err
	}

	plan := planFor(&sub)
	if err := s.apply(ctx, business.ID, plan, sub.ID); err != nil {
		return Projection{}, err
	}
	return Projection{BusinessID: business.ID, Plan: plan, Applied: true}, nil
}

func (s *BillingService) apply(ctx context.Context, id uuid.UUID, plan models.Plan, subscriptionID string) error {
	if err := s.store.UpdateBusinessPlan(ctx, id, plan, subscriptionID); err != nil {
		return upstream("update plan", err)
	}
	return nil
}

// resolve finds the business named by the first businessId metadata entry,
// falling back to the stored provider customer id. A nil business with a nil
// error means the event belongs to no known tenant.
func (s *BillingService) resolve(ctx context.Context, customerID string, metadata ...map[string]string) (*models.Business, error) {
	for _, md := range metadata {
		raw := strings.TrimSpace(md[businessIDKey])
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		b, err := s.store.FindBusiness(ctx, id)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, upstream("load business", err)
		}
	}

	if customerID == "" {
		return nil, nil
	}
	b, err := s.store.FindBusinessByStripeCustomer(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, upstream("load business by payment customer", err)
	}
	return b, nil
}

func (s *BillingService) planOf(sub *stripe.Subscription) models.Plan {
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return models.PlanStarter
	}
	return s.prices.PlanFor(sub.Items.Data[0].Price.ID)
}

func decode(event stripe.Event, v interface{}) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return &ValidationError{Field: "data", Message: "event has no object"}
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return &ValidationError{Field: "data", Message: "malformed event object"}
	}
	return nil
}

func customerOf(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
