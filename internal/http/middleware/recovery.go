package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rtc-attention/internal/http/response"
	"github.com/yungbote/rtc-attention/internal/platform/logger"
)

// Recovery turns a handler panic into a 500 envelope and logs it.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if log != nil {
			log.Error("panic serving request", "path", c.Request.URL.Path, "panic", fmt.Sprint(recovered))
		}
		response.RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal server error"))
	})
}

// BodyLimit caps request bodies at max bytes.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
