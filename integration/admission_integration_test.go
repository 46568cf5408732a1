package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gympass/internal/access"
	"gympass/internal/auth"
	"gympass/internal/location"
	"gympass/internal/subscription"
)

func newAdmissionRouter(db *sqlx.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	subscriptionHandler := subscription.NewHandler(db)
	locationHandler := location.NewHandler(db)
	accessHandler := access.NewHandler(db)

	authMiddleware := auth.AuthMiddleware(testJWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/subscriptions", subscriptionHandler.Create)
		protected.GET("/subscriptions", subscriptionHandler.List)
		protected.GET("/locations", accessHandler.ListAccessible)
		protected.GET("/locations/:locationID/capacity", locationHandler.GetCapacityStatus)
	}

	return router
}

func TestAdmission_HardLimitBlocksSignup(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	chainID := createTestChain(t, db, "Iron Works")
	locationID := createTestLocation(t, db, chainID, "Downtown")
	planID := createTestPlan(t, db, "standard")
	setCapacityLimit(t, db, locationID, 1, true)

	// One active member already fills the location.
	existingUserID := createTestUser(t, db, "first@example.com", "First Member", "member")
	existingMemberID := createTestMember(t, db, existingUserID, chainID)
	createTestGrant(t, db, existingMemberID, &locationID, "HOME")
	createTestSubscription(t, db, existingMemberID, planID, locationID, "active", "current", nil)

	newUserID := createTestUser(t, db, "second@example.com", "Second Member", "member")
	createTestMember(t, db, newUserID, chainID)

	router := newAdmissionRouter(db)

	// Capacity report shows the hard block.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", fmt.Sprintf("/locations/%d/capacity", locationID), "", newUserID, "second@example.com", "member"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report location.CapacityReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.ActiveMembersCount)
	assert.Equal(t, location.StatusBlockNew, report.Status)

	// Sign-up is rejected at admission.
	body := fmt.Sprintf(`{"plan_id":%d,"location_id":%d}`, planID, locationID)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "POST", "/subscriptions", body, newUserID, "second@example.com", "member"))
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CAPACITY_BLOCKED", resp["code"])
}

func TestAdmission_SignupCreatesHomeGrant(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	chainID := createTestChain(t, db, "Iron Works")
	locationID := createTestLocation(t, db, chainID, "Downtown")
	planID := createTestPlan(t, db, "standard")

	userID := createTestUser(t, db, "fresh@example.com", "Fresh Member", "member")
	memberID := createTestMember(t, db, userID, chainID)

	router := newAdmissionRouter(db)

	body := fmt.Sprintf(`{"plan_id":%d,"location_id":%d}`, planID, locationID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "POST", "/subscriptions", body, userID, "fresh@example.com", "member"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var grantType string
	err := db.Get(&grantType, `
		SELECT access_type FROM access_grants
		WHERE member_id = $1 AND location_id = $2 AND status = 'ACTIVE'
	`, memberID, locationID)
	require.NoError(t, err)
	assert.Equal(t, "HOME", grantType)

	// The new member now resolves the location as accessible.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/locations", "", userID, "fresh@example.com", "member"))
	require.Equal(t, http.StatusOK, w.Code)

	var resolution access.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolution))
	require.Len(t, resolution.Locations, 1)
	assert.Equal(t, locationID, resolution.Locations[0].ID)
	assert.False(t, resolution.NoAccess)
}

func TestAdmission_CrossChainSignupRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	homeChainID := createTestChain(t, db, "Iron Works")
	otherChainID := createTestChain(t, db, "Rival Fitness")
	otherLocationID := createTestLocation(t, db, otherChainID, "Rival Downtown")
	planID := createTestPlan(t, db, "standard")
	setCapacityLimit(t, db, otherLocationID, 1, true)

	// The member belongs to Iron Works; the rival chain's count would
	// never include them, so admission must refuse the sign-up outright.
	userID := createTestUser(t, db, "roamer@example.com", "Roaming Member", "member")
	memberID := createTestMember(t, db, userID, homeChainID)

	router := newAdmissionRouter(db)

	body := fmt.Sprintf(`{"plan_id":%d,"location_id":%d}`, planID, otherLocationID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "POST", "/subscriptions", body, userID, "roamer@example.com", "member"))
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NO_ACCESS", resp["code"])

	// Nothing was admitted: no subscription, no grant.
	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM subscriptions WHERE member_id = $1`, memberID))
	assert.Zero(t, count)
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM access_grants WHERE member_id = $1`, memberID))
	assert.Zero(t, count)
}

func TestAdmission_RecoveredMarkerServedOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	chainID := createTestChain(t, db, "Iron Works")
	locationID := createTestLocation(t, db, chainID, "Downtown")
	planID := createTestPlan(t, db, "standard")

	userID := createTestUser(t, db, "recovered@example.com", "Recovered Member", "member")
	memberID := createTestMember(t, db, userID, chainID)
	createTestGrant(t, db, memberID, &locationID, "HOME")
	createTestSubscription(t, db, memberID, planID, locationID, "active", "recovered", nil)

	router := newAdmissionRouter(db)

	// First read carries the marker.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/subscriptions", "", userID, "recovered@example.com", "member"))
	require.Equal(t, http.StatusOK, w.Code)

	var views []subscription.SubscriptionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.True(t, views[0].Recovered)
	assert.Equal(t, subscription.StateActive, views[0].AccessState)

	// Second read does not.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, "GET", "/subscriptions", "", userID, "recovered@example.com", "member"))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.False(t, views[0].Recovered)
	assert.Equal(t, subscription.StateActive, views[0].AccessState)
}
