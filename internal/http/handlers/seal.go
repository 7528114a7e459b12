package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tripseal-backend/internal/http/response"
	"github.com/yungbote/tripseal-backend/internal/services"
)

type SealHandler struct {
	sealService services.SealService
}

func NewSealHandler(sealService services.SealService) *SealHandler {
	return &SealHandler{sealService: sealService}
}

// POST /api/sessions/:id/guard-scans
// body: { "barcode": "...", "method": "scanned" | "manual", "image": "<base64 or url>" }
func (h *SealHandler) GuardScan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req services.GuardScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.sealService.GuardScan(requestDBC(c), id, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/sessions/:id/seal-comparison
func (h *SealHandler) Comparison(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.sealService.Comparison(requestDBC(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/sessions/:id/verify
// body: { "verification": { ... } } or empty
func (h *SealHandler) Verify(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req services.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.sealService.Verify(requestDBC(c), id, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}
