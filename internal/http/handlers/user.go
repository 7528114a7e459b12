package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tripseal-backend/internal/http/response"
	"github.com/yungbote/tripseal-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/me
func (h *UserHandler) GetMe(c *gin.Context) {
	me, err := h.userService.Me(requestDBC(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, me)
}

// POST /api/users
// body: { "name": "...", "email": "...", "password": "...", "role": "COMPANY" | "EMPLOYEE", "subrole": "OPERATOR" | "GUARD", "company_id": "<uuid>" }
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	profile, err := h.userService.CreateUser(requestDBC(c), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, profile)
}

// PUT /api/users/:id/permissions
// body: { "can_create": true, "can_modify": true, "can_delete": false }
func (h *UserHandler) SetPermissions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req services.PermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	perms, err := h.userService.SetPermissions(requestDBC(c), id, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"permissions": perms})
}
