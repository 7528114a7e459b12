package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tripseal-backend/internal/http/response"
	"github.com/yungbote/tripseal-backend/internal/services"
)

type CoinHandler struct {
	coinService services.CoinService
}

func NewCoinHandler(coinService services.CoinService) *CoinHandler {
	return &CoinHandler{coinService: coinService}
}

// POST /api/coins/allocate
// body: { "to_user_id": "<uuid>", "amount": 5, "notes": "..." }
func (h *CoinHandler) Allocate(c *gin.Context) {
	var req services.AllocateCoinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.coinService.Allocate(requestDBC(c), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/coins/balance
func (h *CoinHandler) Balance(c *gin.Context) {
	out, err := h.coinService.Balance(requestDBC(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/coins/transactions?limit=50&offset=0
func (h *CoinHandler) Transactions(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	rows, err := h.coinService.Transactions(requestDBC(c), limit, offset)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"transactions": rows})
}
