package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
)

func TestRespondAPIError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"validation", apierr.Validation("barcode is required"), http.StatusBadRequest, apierr.CodeValidation, "barcode is required"},
		{"forbidden", apierr.Forbidden("only guards can verify sessions"), http.StatusForbidden, apierr.CodeForbidden, "only guards can verify sessions"},
		{"internal hides cause", apierr.Internal(errors.New("pq: connection reset")), http.StatusInternalServerError, apierr.CodeInternal, "internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apierr.CodeInternal, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			RespondAPIError(c, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: want=%d got=%d", tc.wantStatus, rec.Code)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tc.wantCode || env.Error.Message != tc.wantMsg {
				t.Fatalf("envelope: want=%s/%q got=%s/%q", tc.wantCode, tc.wantMsg, env.Error.Code, env.Error.Message)
			}
			if tc.wantStatus >= 500 && len(c.Errors) != 1 {
				t.Fatalf("server errors attached: want=1 got=%d", len(c.Errors))
			}
		})
	}
}
