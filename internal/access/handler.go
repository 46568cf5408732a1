package access

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"gympass/internal/api"
	"gympass/internal/auth"
	"gympass/internal/logger"
)

type Handler struct {
	repo     Repository
	resolver Resolver
}

func NewHandler(db *sqlx.DB) *Handler {
	repo := NewRepository(db)
	return &Handler{
		repo:     repo,
		resolver: NewResolver(repo),
	}
}

// ListAccessible godoc
// @Summary      Resolve accessible locations for the caller
// @Description  Staff assignments take precedence over member grants. An empty set is a valid no-access state.
// @Tags         access
// @Security     BearerAuth
// @Produce      json
// @Param        active_location_id  query  int  false  "Client-persisted location hint"
// @Success      200  {object}  Resolution
// @Router       /locations [get]
func (h *Handler) ListAccessible(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var persistedID *int
	if raw := c.Query("active_location_id"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			persistedID = &id
		}
	}

	resolution, err := h.resolver.Resolve(c.Request.Context(), userID, persistedID)
	if err != nil {
		logger.Errorf("Failed to resolve locations for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve accessible locations"})
		return
	}

	c.JSON(http.StatusOK, resolution)
}

// CreateGrant godoc
// @Summary      Create an access grant for a member
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        memberID  path  int                 true  "Member id"
// @Param        request   body  CreateGrantRequest  true  "Grant data"
// @Success      201  {object}  Grant
// @Failure      403  {object}  api.ErrorResponse
// @Router       /admin/members/{memberID}/grants [post]
func (h *Handler) CreateGrant(c *gin.Context) {
	memberID, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	var req CreateGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessType := AccessType(req.AccessType)
	if accessType != TypeAllAccess && req.LocationID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location_id is required for HOME and SECONDARY grants"})
		return
	}
	if accessType == TypeAllAccess {
		req.LocationID = nil
	}

	if !h.callerManagesGrantTarget(c, accessType, req.LocationID) {
		c.JSON(http.StatusForbidden, api.ErrorResponse{
			Error: "manager or admin role required",
			Code:  api.CodePermissionDenied,
		})
		return
	}

	grant, err := h.repo.CreateGrant(c.Request.Context(), memberID, req.LocationID, accessType)
	if err != nil {
		logger.Errorf("Failed to create %s grant for member %d: %v", accessType, memberID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create grant"})
		return
	}

	c.JSON(http.StatusCreated, grant)
}

// UpdateGrantStatus godoc
// @Summary      Suspend, expire or reactivate a grant
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        grantID  path   int     true  "Grant id"
// @Param        status   query  string  true  "ACTIVE, SUSPENDED or EXPIRED"
// @Success      200  {object}  api.MessageResponse
// @Router       /admin/grants/{grantID}/status [post]
func (h *Handler) UpdateGrantStatus(c *gin.Context) {
	grantID, err := strconv.Atoi(c.Param("grantID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grant id"})
		return
	}

	status := GrantStatus(c.Query("status"))
	if status != GrantActive && status != GrantSuspended && status != GrantExpired {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grant status"})
		return
	}

	if err := h.repo.UpdateGrantStatus(c.Request.Context(), grantID, status); err != nil {
		if errors.Is(err, ErrGrantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "grant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update grant"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "grant updated"})
}

// AssignStaff godoc
// @Summary      Assign a staff user to a location
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body  AssignStaffRequest  true  "Assignment data"
// @Success      201  {object}  StaffAssignment
// @Router       /admin/staff-assignments [post]
func (h *Handler) AssignStaff(c *gin.Context) {
	var req AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment, err := h.repo.AssignStaff(c.Request.Context(), req.UserID, req.LocationID, StaffRole(req.Role))
	if err != nil {
		logger.Errorf("Failed to assign staff %d to location %d: %v", req.UserID, req.LocationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign staff"})
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// callerManagesGrantTarget gates grant creation: owners pass, staff need a
// manager/admin assignment at the grant's location (any assignment for
// ALL_ACCESS, which is chain-wide).
func (h *Handler) callerManagesGrantTarget(c *gin.Context, accessType AccessType, locationID *int) bool {
	role, _ := auth.GetUserRole(c)
	if role == auth.RoleOwner {
		return true
	}

	userID, ok := auth.GetUserID(c)
	if !ok {
		return false
	}

	if accessType == TypeAllAccess || locationID == nil {
		locations, err := h.repo.ListActiveStaffLocations(c.Request.Context(), userID)
		if err != nil || len(locations) == 0 {
			return false
		}
		for _, l := range locations {
			staffRole, err := h.repo.StaffRoleAt(c.Request.Context(), userID, l.ID)
			if err == nil && CanManageLocationSettings(staffRole) {
				return true
			}
		}
		return false
	}

	staffRole, err := h.repo.StaffRoleAt(c.Request.Context(), userID, *locationID)
	if err != nil {
		return false
	}
	return CanManageLocationSettings(staffRole)
}
