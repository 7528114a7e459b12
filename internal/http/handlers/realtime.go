package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/tripseal-backend/internal/http/response"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/access"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/ctxutil"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"github.com/yungbote/tripseal-backend/internal/realtime"
	"github.com/yungbote/tripseal-backend/internal/services"
)

type RealtimeHandler struct {
	log    *logger.Logger
	hub    *realtime.SSEHub
	access services.AccessService
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, accessService services.AccessService) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub, access: accessService}
}

// GET /api/events?session=<id>&session=<id>
// Streams the caller's user channel plus every listed session they may read.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondAPIError(c, apierr.Unauthenticated("not authenticated"))
		return
	}
	channels := []string{realtime.UserChannel(rd.UserID)}
	dbc := requestDBC(c)
	for _, raw := range c.QueryArray("session") {
		sessionID, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
			return
		}
		if _, _, err := h.access.AuthorizeSession(dbc, sessionID, access.ActionRead); err != nil {
			response.RespondAPIError(c, err)
			return
		}
		channels = append(channels, realtime.SessionChannel(sessionID))
	}

	client := h.hub.NewSSEClient(rd.UserID)
	for _, ch := range channels {
		h.hub.AddChannel(client, ch)
	}
	h.log.Debug("SSE stream open", "user_id", rd.UserID, "sessions", client.SessionIDs())

	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.hub.CloseClient(client)
}
