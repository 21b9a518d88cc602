package controllers

import (
	"net/http"

	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-gonic/gin"
)

// CheckinInput is the public check-in form. Required fields are checked by
// the service so a missing field is reported by name.
type CheckinInput struct {
	BusinessID   string `json:"businessId"`
	BusinessName string `json:"businessName"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Service      string `json:"service"`
	Referral     string `json:"referral"`
}

type CheckinController struct {
	checkins *services.CheckinService
}

func NewCheckinController(checkins *services.CheckinService) *CheckinController {
	return &CheckinController{checkins: checkins}
}

func (cc *CheckinController) Checkin(c *gin.Context) {
	var input CheckinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input", utils.CodeInvalidInput)
		return
	}

	_, err := cc.checkins.Checkin(c.Request.Context(), services.CheckinInput{
		BusinessID:   input.BusinessID,
		BusinessName: input.BusinessName,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Service:      input.Service,
		Referral:     input.Referral,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
