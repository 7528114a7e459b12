package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError writes err using its api error status and code. The cause is
// attached to the gin context for the request logger and never sent to clients
// on server-side failures.
func RespondAPIError(c *gin.Context, err error) {
	e := apierr.As(err)
	if e == nil {
		e = apierr.Internal(nil)
	}
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(e)
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: e.PublicMessage(),
			Code:    e.Code,
		},
	})
}

// AbortAPIError is RespondAPIError for middleware.
func AbortAPIError(c *gin.Context, err error) {
	RespondAPIError(c, err)
	c.Abort()
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
