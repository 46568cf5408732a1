package subscription

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gympass/internal/access"
	"gympass/internal/api"
	"gympass/internal/auth"
	"gympass/internal/logger"
)

type Handler struct {
	service Service
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{
		service: NewService(NewRepository(db), access.NewRepository(db)),
	}
}

// ListPlans godoc
// @Summary      List pricing plans
// @Tags         subscriptions
// @Produce      json
// @Success      200  {array}  Plan
// @Router       /plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to list plans: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list plans"})
		return
	}

	c.JSON(http.StatusOK, plans)
}

// Create godoc
// @Summary      Sign up for a plan at a location
// @Description  Admission is capacity-guarded. A full location with a hard limit rejects the sign-up.
// @Tags         subscriptions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body  CreateSubscriptionRequest  true  "Plan and location"
// @Success      201  {object}  Subscription
// @Failure      403  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /subscriptions [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrCapacityBlocked):
			c.JSON(http.StatusConflict, api.ErrorResponse{
				Error: "this location is not accepting new members right now",
				Code:  api.CodeCapacityBlocked,
			})
		case errors.Is(err, ErrPlanNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		case errors.Is(err, ErrLocationUnavailable):
			c.JSON(http.StatusNotFound, gin.H{"error": "location not found or inactive"})
		case errors.Is(err, ErrLocationOutsideChain):
			c.JSON(http.StatusForbidden, api.ErrorResponse{
				Error: "this location belongs to a different chain",
				Code:  api.CodeNoAccess,
			})
		case errors.Is(err, access.ErrMemberNotFound):
			c.JSON(http.StatusForbidden, gin.H{"error": "caller has no member profile"})
		default:
			logger.Errorf("Failed to create subscription for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create subscription"})
		}
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// List godoc
// @Summary      List the caller's subscriptions
// @Description  Each entry carries the access state derived at serve time. A recovered marker is consumed by this read.
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  SubscriptionView
// @Router       /subscriptions [get]
func (h *Handler) List(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	views, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, access.ErrMemberNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "caller has no member profile"})
			return
		}
		logger.Errorf("Failed to list subscriptions for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscriptions"})
		return
	}

	c.JSON(http.StatusOK, views)
}
