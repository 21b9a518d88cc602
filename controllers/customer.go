package controllers

import (
	"errors"
	"net/http"

	"revisitly-backend/models"
	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateCustomerInput records a visit from the dashboard.
type CreateCustomerInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"omitempty,phone"`
	Service  string `json:"service"`
	Referral string `json:"referral"`
}

type CustomerController struct {
	businesses *services.BusinessService
	checkins   *services.CheckinService
	followups  *services.FollowupService
}

func NewCustomerController(businesses *services.BusinessService, checkins *services.CheckinService, followups *services.FollowupService) *CustomerController {
	return &CustomerController{businesses: businesses, checkins: checkins, followups: followups}
}

// GetCustomers lists the business's customers, most recent visit first.
func (cc *CustomerController) GetCustomers(c *gin.Context) {
	businessID, ok := contextID(c, "businessId")
	if !ok {
		return
	}

	customers, err := cc.businesses.ListCustomers(c.Request.Context(), businessID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if customers == nil {
		customers = []models.BusinessCustomer{}
	}

	c.JSON(http.StatusOK, customers)
}

func (cc *CustomerController) CreateCustomer(c *gin.Context) {
	businessID, ok := contextID(c, "businessId")
	if !ok {
		return
	}

	var input CreateCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), utils.CodeInvalidInput)
		return
	}

	bc, err := cc.checkins.RecordVisit(c.Request.Context(), services.CheckinInput{
		BusinessID: businessID.String(),
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		Service:    input.Service,
		Referral:   input.Referral,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bc)
}

// SendFollowup is the dashboard's manual follow-up button.
func (cc *CustomerController) SendFollowup(c *gin.Context) {
	businessID, ok := contextID(c, "businessId")
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID", utils.CodeInvalidInput)
		return
	}

	owned, err := cc.businesses.OwnsRelationship(c.Request.Context(), businessID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !owned {
		utils.RespondWithError(c, http.StatusNotFound, "customer not found", utils.CodeNotFound)
		return
	}

	err = cc.followups.SendReminder(c.Request.Context(), id)
	if err != nil && !errors.Is(err, services.ErrAlreadyDispatched) {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
