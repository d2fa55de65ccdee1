package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rtc-attention/internal/attention/features"
	"github.com/yungbote/rtc-attention/internal/attention/pipeline"
	"github.com/yungbote/rtc-attention/internal/attention/session"
	"github.com/yungbote/rtc-attention/internal/http/middleware"
	"github.com/yungbote/rtc-attention/internal/http/response"
	"github.com/yungbote/rtc-attention/internal/platform/apierr"
	"github.com/yungbote/rtc-attention/internal/platform/logger"
	"github.com/yungbote/rtc-attention/internal/vision"
)

// AttentionService is the slice of the pipeline the handlers use.
type AttentionService interface {
	ClassifyImage(ctx context.Context, userID, payload string) (pipeline.Result, error)
	Calibrate(ctx context.Context, userID, payload string) (bool, error)
	Room(userIDs []string) map[string]pipeline.RoomEntry
	History(userID string) (session.Snapshot, error)
	Stats() session.Stats
}

type AttentionHandler struct {
	log *logger.Logger
	svc AttentionService
}

func NewAttentionHandler(log *logger.Logger, svc AttentionService) *AttentionHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AttentionHandler{log: log.With("handler", "attention"), svc: svc}
}

type frameRequest struct {
	Image  string `json:"image"`
	UserID string `json:"userId"`
}

type attentionResponse struct {
	UserID              string                  `json:"userId"`
	AttentionState      string                  `json:"attentionState"`
	AttentionCategory   string                  `json:"attentionCategory"`
	AttentionPercentage int                     `json:"attentionPercentage"`
	Confidence          float64                 `json:"confidence"`
	StateSince          int64                   `json:"stateSince"`
	Timestamp           int64                   `json:"timestamp"`
	Measurements        *features.FeatureVector `json:"measurements,omitempty"`
}

type calibrationResponse struct {
	UserID             string `json:"userId"`
	CalibrationSuccess bool   `json:"calibrationSuccess"`
	Timestamp          int64  `json:"timestamp"`
}

func (h *AttentionHandler) bindFrame(c *gin.Context) (frameRequest, bool) {
	var req frameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", err)
			return req, false
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return req, false
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || strings.TrimSpace(req.Image) == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_fields", errors.New("missing required data: image and userId"))
		return req, false
	}
	c.Set(middleware.UserIDKey, req.UserID)
	return req, true
}

// POST /api/detect_attention
func (h *AttentionHandler) DetectAttention(c *gin.Context) {
	req, ok := h.bindFrame(c)
	if !ok {
		return
	}
	res, err := h.svc.ClassifyImage(c.Request.Context(), req.UserID, req.Image)
	if err != nil {
		h.fail(c, err)
		return
	}
	fv := res.Measurements
	response.RespondOK(c, attentionResponse{
		UserID:              res.UserID,
		AttentionState:      string(res.State),
		AttentionCategory:   string(res.Category),
		AttentionPercentage: res.AttentionPercentage,
		Confidence:          pipeline.PresentConfidence(res.Confidence),
		StateSince:          res.StateSinceMs,
		Timestamp:           res.TimestampMs,
		Measurements:        &fv,
	})
}

// POST /api/calibrate
func (h *AttentionHandler) Calibrate(c *gin.Context) {
	req, ok := h.bindFrame(c)
	if !ok {
		return
	}
	success, err := h.svc.Calibrate(c.Request.Context(), req.UserID, req.Image)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, calibrationResponse{
		UserID:             req.UserID,
		CalibrationSuccess: success,
		Timestamp:          time.Now().UnixMilli(),
	})
}

// GET /api/users/:id/history
func (h *AttentionHandler) History(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	c.Set(middleware.UserIDKey, userID)
	snap, err := h.svc.History(userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, snap)
}

func (h *AttentionHandler) fail(c *gin.Context, err error) {
	ae := mapError(err)
	if ae.Status >= http.StatusInternalServerError {
		h.log.Error("attention request failed", "path", c.FullPath(), "status", ae.Status, "error", err)
	}
	response.RespondAPIError(c, ae)
}

func mapError(err error) *apierr.Error {
	var (
		decErr *vision.DecodeError
		detErr *vision.DetectorError
	)
	switch {
	case errors.As(err, &decErr):
		return apierr.BadRequest("invalid_image", err)
	case errors.As(err, &detErr):
		return apierr.New(http.StatusBadGateway, "detector_failed", err)
	case errors.Is(err, pipeline.ErrBusy):
		return apierr.New(http.StatusServiceUnavailable, "busy", err)
	case errors.Is(err, vision.ErrNoDetector):
		return apierr.New(http.StatusServiceUnavailable, "no_detector", err)
	case errors.Is(err, session.ErrUnknownUser):
		return apierr.New(http.StatusNotFound, "unknown_user", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusGatewayTimeout, "timeout", err)
	}
	return apierr.From(err)
}
