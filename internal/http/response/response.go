package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rtc-attention/internal/platform/apierr"
	"github.com/yungbote/rtc-attention/internal/platform/ctxutil"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError aborts with the error envelope. Unclassified 500s carry a
// fixed message; the cause goes to the access log through c.Errors.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	if status == http.StatusInternalServerError && (code == "" || code == "internal") {
		msg = "internal error"
	}
	apiErr := APIError{Message: msg, Code: code}
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		apiErr.TraceID = td.TraceID
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: apiErr})
}

// RespondAPIError answers with the status and code carried by err.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.From(err)
	RespondError(c, ae.Status, ae.Code, ae.Err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
