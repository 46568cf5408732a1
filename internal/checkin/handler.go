package checkin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gympass/internal/access"
	"gympass/internal/api"
	"gympass/internal/auth"
	"gympass/internal/logger"
	"gympass/internal/subscription"
)

type Handler struct {
	service Service
}

func NewHandler(db *sqlx.DB, publisher EventPublisher, tokenTTL time.Duration) *Handler {
	return &Handler{
		service: NewService(
			NewRepository(db),
			access.NewRepository(db),
			subscription.NewRepository(db),
			publisher,
			tokenTTL,
		),
	}
}

// IssueToken godoc
// @Summary      Issue a short-lived check-in token
// @Description  Only active or in-grace members can mint a token. Re-requesting invalidates the previous token.
// @Tags         checkin
// @Security     BearerAuth
// @Produce      json
// @Success      201  {object}  IssuedToken
// @Failure      403  {object}  api.ErrorResponse
// @Router       /checkin/token [post]
func (h *Handler) IssueToken(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, err := h.service.IssueToken(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccessRestricted):
			c.JSON(http.StatusForbidden, api.ErrorResponse{
				Error: "your membership is not in good standing",
				Code:  api.CodeAccessRestricted,
			})
		case errors.Is(err, access.ErrMemberNotFound):
			c.JSON(http.StatusForbidden, gin.H{"error": "caller has no member profile"})
		default:
			logger.Errorf("Failed to issue check-in token for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		}
		return
	}

	c.JSON(http.StatusCreated, token)
}

// Validate godoc
// @Summary      Validate and consume a scanned token
// @Description  Single-use. The member's standing is re-checked at scan time, so a token issued in grace can still be denied.
// @Tags         checkin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body  ValidateTokenRequest  true  "Scanned token and location"
// @Success      200  {object}  Event
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Failure      410  {object}  api.ErrorResponse
// @Router       /checkin/validate [post]
func (h *Handler) Validate(c *gin.Context) {
	userID, role, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.service.Validate(c.Request.Context(), userID, role, req)
	if err != nil {
		respondCheckinError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// Manual godoc
// @Summary      Record a front-desk check-in
// @Tags         checkin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body  ManualCheckinRequest  true  "Member and location"
// @Success      200  {object}  Event
// @Failure      403  {object}  api.ErrorResponse
// @Router       /checkin/manual [post]
func (h *Handler) Manual(c *gin.Context) {
	userID, role, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req ManualCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.service.Manual(c.Request.Context(), userID, role, req)
	if err != nil {
		respondCheckinError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// ListRecent godoc
// @Summary      List recent check-ins at a location
// @Tags         checkin
// @Security     BearerAuth
// @Produce      json
// @Param        locationID  path   int     true   "Location id"
// @Param        date        query  string  false  "Restrict to a calendar day (YYYY-MM-DD)"
// @Success      200  {array}  Event
// @Router       /locations/{locationID}/checkins [get]
func (h *Handler) ListRecent(c *gin.Context) {
	userID, role, ok := callerIdentity(c)
	if !ok {
		return
	}

	locationID, err := strconv.Atoi(c.Param("locationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	var day *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		day = &parsed
	}

	events, err := h.service.ListRecent(c.Request.Context(), userID, role, locationID, day)
	if err != nil {
		respondCheckinError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

func callerIdentity(c *gin.Context) (int, string, bool) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, "", false
	}
	role, _ := auth.GetUserRole(c)
	return userID, role, true
}

func respondCheckinError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTokenNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "token not recognized", Code: api.CodeTokenNotFound})
	case errors.Is(err, ErrTokenExpired):
		c.JSON(http.StatusGone, api.ErrorResponse{Error: "token expired, ask the member to refresh their code", Code: api.CodeTokenExpired})
	case errors.Is(err, ErrTokenAlreadyUsed):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "token was already used", Code: api.CodeTokenAlreadyUsed})
	case errors.Is(err, ErrAccessRestricted):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "membership is not in good standing", Code: api.CodeAccessRestricted})
	case errors.Is(err, ErrNoAccessAtLocation):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "member has no access to this location", Code: api.CodeNoAccess})
	case errors.Is(err, ErrNotStaffAtLocation):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "staff assignment at this location required", Code: api.CodePermissionDenied})
	default:
		logger.Errorf("Check-in request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check-in failed"})
	}
}
