package controllers

import (
	"net/http"

	"revisitly-backend/models"
	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-gonic/gin"
)

type RegisterInput struct {
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name"`
	Password     string `json:"password" binding:"required,min=8"`
	BusinessName string `json:"businessName" binding:"required"`
	Category     string `json:"category" binding:"omitempty,business_category"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token    string           `json:"token,omitempty"`
	User     *models.User     `json:"user"`
	Business *models.Business `json:"business"`
}

type AuthController struct {
	businesses *services.BusinessService
}

func NewAuthController(businesses *services.BusinessService) *AuthController {
	return &AuthController{businesses: businesses}
}

// controllers/auth.go
func (ac *AuthController) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), utils.CodeInvalidInput)
		return
	}

	session, err := ac.businesses.Register(c.Request.Context(), services.RegisterInput{
		BusinessName: input.BusinessName,
		Category:     models.Category(input.Category),
		Name:         input.Name,
		Email:        input.Email,
		Password:     input.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: session.Token, User: session.User, Business: session.Business})
}

func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), utils.CodeInvalidInput)
		return
	}

	session, err := ac.businesses.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: session.Token, User: session.User, Business: session.Business})
}

func (ac *AuthController) Me(c *gin.Context) {
	userID, ok := contextID(c, "userId")
	if !ok {
		return
	}

	session, err := ac.businesses.Me(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{User: session.User, Business: session.Business})
}
