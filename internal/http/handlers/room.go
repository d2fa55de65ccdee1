package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rtc-attention/internal/attention/pipeline"
	"github.com/yungbote/rtc-attention/internal/events"
	"github.com/yungbote/rtc-attention/internal/http/response"
	"github.com/yungbote/rtc-attention/internal/platform/logger"
)

const maxRoomUsers = 500

type RoomHandler struct {
	log *logger.Logger
	svc AttentionService
	hub *events.Hub
}

func NewRoomHandler(log *logger.Logger, svc AttentionService, hub *events.Hub) *RoomHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RoomHandler{log: log.With("handler", "room"), svc: svc, hub: hub}
}

type roomRequest struct {
	RoomID  string   `json:"roomId"`
	UserIDs []string `json:"userIds"`
}

type roomResponse struct {
	RoomID    string                        `json:"roomId"`
	Attention map[string]pipeline.RoomEntry `json:"attention"`
	Timestamp int64                         `json:"timestamp"`
}

// POST /api/room_attention
func (h *RoomHandler) RoomAttention(c *gin.Context) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.RoomID) == "" || req.UserIDs == nil {
		response.RespondError(c, http.StatusBadRequest, "missing_fields", errors.New("missing required data: roomId and userIds"))
		return
	}
	ids := cleanIDs(req.UserIDs)
	if len(ids) > maxRoomUsers {
		response.RespondError(c, http.StatusBadRequest, "too_many_users", errors.New("too many userIds"))
		return
	}

	entries := h.svc.Room(ids)
	for id, e := range entries {
		e.Confidence = pipeline.PresentConfidence(e.Confidence)
		entries[id] = e
	}
	response.RespondOK(c, roomResponse{
		RoomID:    req.RoomID,
		Attention: entries,
		Timestamp: time.Now().UnixMilli(),
	})
}

// GET /api/rooms/:id/stream?userIds=a,b
func (h *RoomHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "stream_disabled", errors.New("event stream not configured"))
		return
	}
	ids := cleanIDs(strings.Split(c.Query("userIds"), ","))
	if len(ids) == 0 || len(ids) > maxRoomUsers {
		response.RespondError(c, http.StatusBadRequest, "invalid_user_ids", errors.New("userIds must list 1 to 500 users"))
		return
	}

	client := h.hub.NewClient()
	for _, id := range ids {
		h.hub.Subscribe(client, events.UserChannel(id))
	}
	defer h.hub.Close(client)

	h.log.Debug("room stream opened", "room_id", c.Param("id"), "client_id", client.ID, "users", len(ids))
	h.hub.Serve(c.Writer, c.Request, client)
}

func cleanIDs(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
