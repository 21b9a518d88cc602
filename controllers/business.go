package controllers

import (
	"net/http"

	"revisitly-backend/models"
	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-gonic/gin"
)

type UpdateBusinessInput struct {
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone" binding:"omitempty,phone"`
	Category   string `json:"category" binding:"omitempty,business_category"`
	ReviewURL  string `json:"reviewUrl"`
	WebsiteURL string `json:"websiteUrl"`
}

// PublicBusiness is what the check-in page is allowed to see.
type PublicBusiness struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Category  models.Category `json:"category"`
	ReviewURL string          `json:"reviewUrl"`
}

type BusinessController struct {
	businesses *services.BusinessService
}

func NewBusinessController(businesses *services.BusinessService) *BusinessController {
	return &BusinessController{businesses: businesses}
}

func (bc *BusinessController) GetBySlug(c *gin.Context) {
	b, err := bc.businesses.FindBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PublicBusiness{
		ID:        b.ID.String(),
		Name:      b.Name,
		Slug:      b.Slug,
		Category:  b.Category,
		ReviewURL: b.ReviewURL,
	})
}

func (bc *BusinessController) GetSettings(c *gin.Context) {
	businessID, ok := contextID(c, "businessId")
	if !ok {
		return
	}

	b, err := bc.businesses.Get(c.Request.Context(), businessID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

func (bc *BusinessController) UpdateSettings(c *gin.Context) {
	businessID, ok := contextID(c, "businessId")
	if !ok {
		return
	}

	var input UpdateBusinessInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), utils.CodeInvalidInput)
		return
	}

	b, err := bc.businesses.UpdateSettings(c.Request.Context(), businessID, services.SettingsInput{
		Name:       input.Name,
		Phone:      input.Phone,
		Category:   models.Category(input.Category),
		ReviewURL:  input.ReviewURL,
		WebsiteURL: input.WebsiteURL,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}
