package controllers

import (
	"net/http"

	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-gonic/gin"
)

// RequireActivePlan blocks owner features for cancelled or inactive
// businesses. It must run after the auth middleware.
func RequireActivePlan(businesses *services.BusinessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessID, ok := contextID(c, "businessId")
		if !ok {
			return
		}

		b, err := businesses.Get(c.Request.Context(), businessID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if !b.Plan.Active() {
			utils.RespondWithError(c, http.StatusPaymentRequired, "An active subscription is required", utils.CodePlanRequired)
			return
		}

		c.Set("plan", string(b.Plan))
		c.Next()
	}
}
