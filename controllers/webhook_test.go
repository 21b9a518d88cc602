package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"revisitly-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

func signedEvent(t *testing.T, eventType string, object map[string]interface{}) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":     "evt_test",
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})
	return payload, signed.Header
}

func TestStripeWebhook_BadSignature(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBusiness(t, models.PlanStarter)
	payload, _ := signedEvent(t, "customer.subscription.deleted", map[string]interface{}{
		"id": "sub_1", "customer": b.StripeCustomerID, "status": "canceled",
	})

	w := env.do(http.MethodPost, "/api/webhooks/stripe", payload, map[string]string{"Stripe-Signature": "t=1,v1=deadbeef"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	got, err := env.store.FindBusiness(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanStarter, got.Plan)
}

func TestStripeWebhook_SubscriptionDeleted(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBusiness(t, models.PlanPro)
	payload, header := signedEvent(t, "customer.subscription.deleted", map[string]interface{}{
		"id": "sub_1", "object": "subscription", "customer": b.StripeCustomerID, "status": "canceled",
	})

	w := env.do(http.MethodPost, "/api/webhooks/stripe", payload, map[string]string{"Stripe-Signature": header})

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decodeBody(t, w)["received"])
	got, err := env.store.FindBusiness(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanCancelled, got.Plan)
}

func TestStripeWebhook_UnhandledTypeAcknowledged(t *testing.T) {
	env := newTestEnv(t)
	payload, header := signedEvent(t, "invoice.paid", map[string]interface{}{"id": "in_1", "object": "invoice"})

	w := env.do(http.MethodPost, "/api/webhooks/stripe", payload, map[string]string{"Stripe-Signature": header})
	assert.Equal(t, http.StatusOK, w.Code)
}
