package billing

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gympass/internal/api"
	"gympass/internal/logger"
	"gympass/internal/metrics"
	"gympass/internal/subscription"
)

const (
	EventPaymentFailed    = "payment_failed"
	EventPaymentSucceeded = "payment_succeeded"

	signatureHeader = "X-Billing-Signature"
)

// WebhookEvent is the payload the billing processor posts on payment
// outcomes. MemberID is the processor's mapping back to our member row.
type WebhookEvent struct {
	Type     string `json:"type" binding:"required"`
	MemberID int    `json:"member_id" binding:"required"`
}

type Handler struct {
	subRepo     subscription.Repository
	secret      string
	gracePeriod time.Duration
	now         func() time.Time
}

func NewHandler(db *sqlx.DB, secret string, gracePeriod time.Duration) *Handler {
	return &Handler{
		subRepo:     subscription.NewRepository(db),
		secret:      secret,
		gracePeriod: gracePeriod,
		now:         time.Now,
	}
}

// HandleWebhook godoc
// @Summary      Apply a billing processor event
// @Description  Shared-secret authenticated. Payment failures open a grace window; successes mark the subscription recovered.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        X-Billing-Signature  header  string        true  "Shared webhook secret"
// @Param        event                body    WebhookEvent  true  "Billing event"
// @Success      200  {object}  api.MessageResponse
// @Failure      401  {object}  api.ErrorResponse
// @Router       /webhooks/billing [post]
func (h *Handler) HandleWebhook(c *gin.Context) {
	// An unconfigured secret rejects everything. The empty string would
	// otherwise compare equal to a missing header and leave the billing
	// path open to anyone.
	provided := c.GetHeader(signatureHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{
			Error: "invalid webhook signature",
			Code:  api.CodePermissionDenied,
		})
		return
	}

	var event WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	switch event.Type {
	case EventPaymentFailed:
		graceUntil := h.now().Add(h.gracePeriod)
		err = h.subRepo.MarkPaymentFailed(c.Request.Context(), event.MemberID, graceUntil)
	case EventPaymentSucceeded:
		err = h.subRepo.MarkPaymentSucceeded(c.Request.Context(), event.MemberID, h.now())
	default:
		// Unknown event types are acknowledged so the processor stops
		// retrying them.
		logger.Infof("Ignoring unknown billing event type %q for member %d", event.Type, event.MemberID)
		c.JSON(http.StatusOK, api.MessageResponse{Message: "event ignored"})
		return
	}

	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			logger.Errorf("Billing event %s for member %d without subscription", event.Type, event.MemberID)
			c.JSON(http.StatusOK, api.MessageResponse{Message: "no subscription for member"})
			return
		}
		logger.Errorf("Failed to apply billing event %s for member %d: %v", event.Type, event.MemberID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply billing event"})
		return
	}

	metrics.RecordBillingEvent(event.Type)
	c.JSON(http.StatusOK, api.MessageResponse{Message: "event applied"})
}
