package controllers

import (
	"context"
	"net/http"

	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-gonic/gin"
)

type CronController struct {
	sweeps *services.ReengagementService
}

func NewCronController(sweeps *services.ReengagementService) *CronController {
	return &CronController{sweeps: sweeps}
}

// Followup runs the re-engagement sweep for the external scheduler.
func (cc *CronController) Followup(c *gin.Context) {
	if err := cc.sweeps.AuthorizeTrigger(utils.BearerToken(c.GetHeader("Authorization"))); err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", utils.CodeUnauthorized)
		return
	}

	// A trigger that disconnects must not abort the run halfway.
	result, err := cc.sweeps.Sweep(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
