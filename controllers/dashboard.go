package controllers

import (
	"net/http"

	"revisitly-backend/services"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	businesses *services.BusinessService
}

func NewDashboardController(businesses *services.BusinessService) *DashboardController {
	return &DashboardController{businesses: businesses}
}

func (dc *DashboardController) GetDashboardOverview(c *gin.Context) {
	businessID, ok := contextID(c, "businessId")
	if !ok {
		return
	}

	overview, err := dc.businesses.Overview(c.Request.Context(), businessID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
