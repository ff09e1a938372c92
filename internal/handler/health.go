package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dailog/backend/internal/model"
)

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} model.StatusResponse
// @Router /api/health-check [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, model.StatusResponse{Status: "ok"})
}
