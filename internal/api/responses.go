package api

// Machine-readable error codes for the access-control surface. Clients
// branch on these, not on the message text.
const (
	CodeNoAccess         = "NO_ACCESS"
	CodeAccessRestricted = "ACCESS_RESTRICTED"
	CodeTokenNotFound    = "TOKEN_NOT_FOUND"
	CodeTokenExpired     = "TOKEN_EXPIRED"
	CodeTokenAlreadyUsed = "TOKEN_ALREADY_USED"
	CodeCapacityBlocked  = "CAPACITY_BLOCKED"
	CodePermissionDenied = "PERMISSION_DENIED"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
	Code  string `json:"code,omitempty" example:"TOKEN_EXPIRED"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
