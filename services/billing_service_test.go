package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"revisitly-backend/models"
	"revisitly-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type fakeFetcher struct {
	subs map[string]*stripe.Subscription
}

func (f *fakeFetcher) FetchSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", id)
	}
	return sub, nil
}

var testPrices = PriceMap{
	"price_starter": models.PlanStarter,
	"price_growth":  models.PlanGrowth,
	"price_pro":     models.PlanPro,
}

func newBilling(t *testing.T, fetcher SubscriptionFetcher) (*BillingService, *repository.Store) {
	t.Helper()
	store := newTestStore(t)
	return NewBillingService(store, fetcher, testPrices, nil), store
}

func event(t *testing.T, eventType string, object interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripe.Event{ID: "evt_test", Type: stripe.EventType(eventType), Data: &stripe.EventData{Raw: raw}}
}

func subscriptionObject(id, customer, status, price string, metadata map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"id":       id,
		"object":   "subscription",
		"customer": customer,
		"status":   status,
		"metadata": metadata,
		"items": map[string]interface{}{
			"object": "list",
			"data": []map[string]interface{}{
				{"id": "si_1", "object": "subscription_item", "price": map[string]interface{}{"id": price, "object": "price"}},
			},
		},
	}
}

func TestHandleEvent_CheckoutCompleted(t *testing.T) {
	fetcher := &fakeFetcher{subs: map[string]*stripe.Subscription{
		"sub_1": {
			ID:       "sub_1",
			Customer: &stripe.Customer{ID: "cus_1"},
			Status:   stripe.SubscriptionStatusActive,
			Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{ID: "price_growth"}},
			}},
		},
	}}
	svc, store := newBilling(t, fetcher)
	b := seedBusiness(t, store, models.Business{})

	p, err := svc.HandleEvent(context.Background(), event(t, "checkout.session.completed", map[string]interface{}{
		"id":           "cs_1",
		"object":       "checkout.session",
		"customer":     "cus_1",
		"subscription": "sub_1",
		"metadata":     map[string]string{"businessId": b.ID.String()},
	}))
	require.NoError(t, err)
	assert.True(t, p.Applied)
	assert.Equal(t, models.PlanGrowth, p.Plan)

	got, err := store.FindBusiness(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanGrowth, got.Plan)
	assert.Equal(t, "sub_1", got.StripeSubscriptionID)
	assert.Equal(t, "cus_1", got.StripeCustomerID)
}

func TestHandleEvent_SubscriptionLifecycle(t *testing.T) {
	svc, store := newBilling(t, nil)
	ctx := context.Background()
	b := seedBusiness(t, store, models.Business{StripeCustomerID: "cus_9"})

	steps := []struct {
		eventType string
		status    string
		price     string
		want      models.Plan
	}{
		{"customer.subscription.created", "active", "price_pro", models.PlanPro},
		{"customer.subscription.updated", "active", "price_growth", models.PlanGrowth},
		{"customer.subscription.updated", "trialing", "price_growth", models.PlanInactive},
		{"customer.subscription.updated", "past_due", "price_growth", models.PlanInactive},
		{"customer.subscription.updated", "active", "price_unknown", models.PlanStarter},
		{"customer.subscription.deleted", "canceled", "price_growth", models.PlanCancelled},
	}
	for _, step := range steps {
		// No metadata: the business is found by its stored customer id.
		_, err := svc.HandleEvent(ctx, event(t, step.eventType, subscriptionObject("sub_9", "cus_9", step.status, step.price, nil)))
		require.NoError(t, err, step.eventType)

		got, err := store.FindBusiness(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, step.want, got.Plan, "%s %s", step.eventType, step.status)
		assert.Equal(t, "sub_9", got.StripeSubscriptionID)
	}
}

func TestHandleEvent_MetadataWinsOverCustomer(t *testing.T) {
	svc, store := newBilling(t, nil)
	ctx := context.Background()
	byCustomer := seedBusiness(t, store, models.Business{Name: "By Customer", StripeCustomerID: "cus_1"})
	byMetadata := seedBusiness(t, store, models.Business{Name: "By Metadata"})

	_, err := svc.HandleEvent(ctx, event(t, "customer.subscription.created",
		subscriptionObject("sub_1", "cus_1", "active", "price_pro", map[string]string{"businessId": byMetadata.ID.String()})))
	require.NoError(t, err)

	got, err := store.FindBusiness(ctx, byMetadata.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, got.Plan)
	got, err = store.FindBusiness(ctx, byCustomer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanStarter, got.Plan)
}

func TestHandleEvent_UnresolvedAndIgnored(t *testing.T) {
	svc, _ := newBilling(t, nil)
	ctx := context.Background()

	p, err := svc.HandleEvent(ctx, event(t, "customer.subscription.deleted", subscriptionObject("sub_x", "cus_unknown", "canceled", "", nil)))
	require.NoError(t, err)
	assert.False(t, p.Applied)

	p, err = svc.HandleEvent(ctx, event(t, "invoice.paid", map[string]interface{}{"id": "in_1"}))
	require.NoError(t, err)
	assert.False(t, p.Applied)
}

func TestHandleEvent_MalformedObject(t *testing.T) {
	svc, _ := newBilling(t, nil)

	_, err := svc.HandleEvent(context.Background(), stripe.Event{
		Type: "customer.subscription.updated",
		Data: &stripe.EventData{Raw: json.RawMessage(`[1, 2, 3]`)},
	})
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestPriceMap_UnknownIsStarter(t *testing.T) {
	assert.Equal(t, models.PlanPro, testPrices.PlanFor("price_pro"))
	assert.Equal(t, models.PlanStarter, testPrices.PlanFor("price_other"))
	assert.Equal(t, models.PlanStarter, PriceMap{"": models.PlanPro}.PlanFor(""))
}
