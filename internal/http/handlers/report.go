package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/tripseal-backend/internal/http/response"
	"github.com/yungbote/tripseal-backend/internal/services"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GET /api/sessions/:id/report
func (h *ReportHandler) GetReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	bundle, err := h.reportService.Bundle(requestDBC(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, bundle)
}
