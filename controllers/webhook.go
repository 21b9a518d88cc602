package controllers

import (
	"io"
	"net/http"

	"revisitly-backend/logger"
	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76/webhook"
)

const maxWebhookBody = int64(65536)

type WebhookController struct {
	billing *services.BillingService
	secret  string
}

func NewWebhookController(billing *services.BillingService, secret string) *WebhookController {
	return &WebhookController{billing: billing, secret: secret}
}

// Stripe verifies the signature over the raw body before anything is parsed.
func (wc *WebhookController) Stripe(c *gin.Context) {
	l := logger.For("webhook")
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Unreadable body", utils.CodeInvalidInput)
		return
	}

	if wc.secret == "" {
		l.Error().Msg("webhook secret not configured")
		utils.RespondWithError(c, http.StatusBadRequest, "Webhook error", utils.CodeInvalidInput)
		return
	}
	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), wc.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		l.Warn().Err(err).Msg("webhook signature verification failed")
		utils.RespondWithError(c, http.StatusBadRequest, "Webhook error: "+err.Error(), utils.CodeInvalidInput)
		return
	}

	if _, err := wc.billing.HandleEvent(c.Request.Context(), event); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
