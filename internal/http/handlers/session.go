package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tripseal-backend/internal/http/response"
	"github.com/yungbote/tripseal-backend/internal/services"
)

type SessionHandler struct {
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// POST /api/sessions
// body: { "source": "...", "destination": "...", "tripDetails": { "loadingDetails": { "grossWeight": "12.5" } }, "sealTags": [ { "barcode": "...", "method": "scanned", "image": "..." } ] }
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req services.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.sessionService.Create(requestDBC(c), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, out)
}

// GET /api/sessions?status=IN_PROGRESS&limit=20&offset=0
func (h *SessionHandler) ListSessions(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	page, err := h.sessionService.List(requestDBC(c), services.ListSessionsRequest{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	view, err := h.sessionService.Get(requestDBC(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// PATCH /api/sessions/:id/trip-details
// body: { "tripDetails": { "loadingDetails": { "driverName": "..." } }, "images": { "driverPicture": "..." } }
func (h *SessionHandler) UpdateTripDetails(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req services.UpdateTripDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.sessionService.UpdateTripDetails(requestDBC(c), id, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/sessions/:id/field-timestamps
func (h *SessionHandler) FieldTimestamps(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	fields, err := h.sessionService.FieldTimestamps(requestDBC(c), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session_id": id, "fields": fields})
}
