package location

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gympass/internal/access"
	"gympass/internal/api"
	"gympass/internal/auth"
	"gympass/internal/logger"
)

type Handler struct {
	repo       Repository
	service    Service
	accessRepo access.Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	repo := NewRepository(db)
	return &Handler{
		repo:       repo,
		service:    NewService(repo),
		accessRepo: access.NewRepository(db),
	}
}

// GetCapacityStatus godoc
// @Summary      Capacity status for a location
// @Tags         capacity
// @Security     BearerAuth
// @Produce      json
// @Param        locationID  path  int  true  "Location id"
// @Success      200  {object}  CapacityReport
// @Failure      404  {object}  api.ErrorResponse
// @Router       /locations/{locationID}/capacity [get]
func (h *Handler) GetCapacityStatus(c *gin.Context) {
	locationID, err := strconv.Atoi(c.Param("locationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	report, err := h.service.GetCapacityStatus(c.Request.Context(), locationID)
	if err != nil {
		if errors.Is(err, ErrLocationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
			return
		}
		logger.Errorf("Failed to compute capacity status for location %d: %v", locationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute capacity status"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// UpsertCapacityLimit godoc
// @Summary      Configure capacity limits for a location
// @Description  Requires a manager or admin staff assignment at the location.
// @Tags         capacity
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        locationID  path  int                    true  "Location id"
// @Param        request     body  UpsertCapacityRequest  true  "Limit configuration"
// @Success      200  {object}  CapacityLimit
// @Failure      403  {object}  api.ErrorResponse
// @Router       /locations/{locationID}/capacity [put]
func (h *Handler) UpsertCapacityLimit(c *gin.Context) {
	locationID, err := strconv.Atoi(c.Param("locationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	var req UpsertCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if validationErrors := api.ValidateStruct(req); len(validationErrors) > 0 {
		api.RespondWithValidationErrors(c, validationErrors)
		return
	}

	if !h.callerManagesLocation(c, locationID) {
		c.JSON(http.StatusForbidden, api.ErrorResponse{
			Error: "manager or admin role required at this location",
			Code:  api.CodePermissionDenied,
		})
		return
	}

	limit, err := h.repo.UpsertCapacityLimit(c.Request.Context(), locationID, req.MaxActiveMembers, req.SoftLimitThreshold, req.HardLimitEnforced)
	if err != nil {
		logger.Errorf("Failed to upsert capacity limit for location %d: %v", locationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update capacity limit"})
		return
	}

	logger.Infof("Capacity limit updated for location %d", locationID)
	c.JSON(http.StatusOK, limit)
}

// CreateChain godoc
// @Summary      Create a gym chain
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body  CreateChainRequest  true  "Chain data"
// @Success      201  {object}  Chain
// @Router       /admin/chains [post]
func (h *Handler) CreateChain(c *gin.Context) {
	var req CreateChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chain, err := h.repo.CreateChain(c.Request.Context(), req.Name)
	if err != nil {
		logger.Errorf("Failed to create chain %q: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chain"})
		return
	}

	c.JSON(http.StatusCreated, chain)
}

// CreateLocation godoc
// @Summary      Create a location in a chain
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body  CreateLocationRequest  true  "Location data"
// @Success      201  {object}  Location
// @Router       /admin/locations [post]
func (h *Handler) CreateLocation(c *gin.Context) {
	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc, err := h.repo.CreateLocation(c.Request.Context(), req.ChainID, req.Name, req.Address)
	if err != nil {
		logger.Errorf("Failed to create location %q: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create location"})
		return
	}

	c.JSON(http.StatusCreated, loc)
}

// DeactivateLocation godoc
// @Summary      Soft-disable a location
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        locationID  path  int  true  "Location id"
// @Success      200  {object}  api.MessageResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /admin/locations/{locationID}/deactivate [post]
func (h *Handler) DeactivateLocation(c *gin.Context) {
	locationID, err := strconv.Atoi(c.Param("locationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}

	if err := h.repo.DeactivateLocation(c.Request.Context(), locationID); err != nil {
		if errors.Is(err, ErrLocationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "location not found or already inactive"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate location"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "location deactivated"})
}

func (h *Handler) callerManagesLocation(c *gin.Context, locationID int) bool {
	role, _ := auth.GetUserRole(c)
	if role == auth.RoleOwner {
		return true
	}

	userID, ok := auth.GetUserID(c)
	if !ok {
		return false
	}

	staffRole, err := h.accessRepo.StaffRoleAt(c.Request.Context(), userID, locationID)
	if err != nil {
		return false
	}

	return access.CanManageLocationSettings(staffRole)
}
