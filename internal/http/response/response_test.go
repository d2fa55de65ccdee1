package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rtc-attention/internal/platform/apierr"
	"github.com/yungbote/rtc-attention/internal/platform/ctxutil"
)

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, ErrorEnvelope, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request = req.WithContext(ctxutil.WithTraceData(req.Context(), &ctxutil.TraceData{TraceID: "t-1"}))
	h(c)
	var env ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	return w, env, c
}

func TestRespondAPIError(t *testing.T) {
	w, env, c := serve(t, func(c *gin.Context) {
		RespondAPIError(c, apierr.BadRequest("invalid_image", errors.New("not an image")))
	})
	if w.Code != http.StatusBadRequest || env.Error.Code != "invalid_image" || env.Error.Message != "not an image" {
		t.Fatalf("status=%d env=%+v", w.Code, env)
	}
	if env.Error.TraceID != "t-1" {
		t.Fatalf("trace id=%q", env.Error.TraceID)
	}
	if !c.IsAborted() || len(c.Errors) != 1 {
		t.Fatalf("aborted=%v errors=%d", c.IsAborted(), len(c.Errors))
	}
}

func TestRespondAPIErrorHidesInternalCause(t *testing.T) {
	w, env, _ := serve(t, func(c *gin.Context) {
		RespondAPIError(c, errors.New("redis: connection refused"))
	})
	if w.Code != http.StatusInternalServerError || env.Error.Code != "internal" || env.Error.Message != "internal error" {
		t.Fatalf("status=%d env=%+v", w.Code, env)
	}
}
