package realtime

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gympass/internal/access"
	"gympass/internal/api"
	"gympass/internal/auth"
	"gympass/internal/metrics"
)

const heartbeatInterval = 25 * time.Second

type Handler struct {
	hub        *Hub
	accessRepo access.Repository
}

func NewHandler(db *sqlx.DB, hub *Hub) *Handler {
	return &Handler{
		hub:        hub,
		accessRepo: access.NewRepository(db),
	}
}

// Stream godoc
// @Summary      Stream live check-ins for a location
// @Description  Server-sent events. On disconnect the client reconnects after a fixed delay and refetches the recent list.
// @Tags         checkin
// @Security     BearerAuth
// @Produce      text/event-stream
// @Param        locationID  path  int  true  "Location id"
// @Failure      403  {object}  api.ErrorResponse
// @Router       /locations/{locationID}/checkins/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	locationID, err := strconv.Atoi(c.Param("locationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	role, _ := auth.GetUserRole(c)
	if role != auth.RoleOwner {
		if _, err := h.accessRepo.StaffRoleAt(c.Request.Context(), userID, locationID); err != nil {
			if errors.Is(err, access.ErrNotStaffAtLocation) {
				c.JSON(http.StatusForbidden, api.ErrorResponse{
					Error: "staff assignment at this location required",
					Code:  api.CodePermissionDenied,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check staff assignment"})
			return
		}
	}

	events, cancel := h.hub.Subscribe(locationID)
	defer cancel()

	metrics.RealtimeConnections.Inc()
	defer metrics.RealtimeConnections.Dec()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("checkin", event)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
