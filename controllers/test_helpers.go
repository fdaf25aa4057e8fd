package controllers

import (
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ShepherdLoop/initializers"
	"github.com/ShepherdLoop/models"
	"github.com/ShepherdLoop/services"
	"github.com/ShepherdLoop/stores"
	"github.com/doug-martin/goqu/v9"
	"github.com/gin-gonic/gin"
)

// SetupTestDB creates a mock database and sets it as the global DB for testing
func SetupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	goquDB := goqu.New("postgres", db)

	originalDB := initializers.DB
	initializers.DB = goquDB

	cleanup := func() {
		db.Close()
		initializers.DB = originalDB
	}

	return db, mock, cleanup
}

// SetupTestFollowUpService wires a follow-up service over the mocked global DB
// with a fixed clock and no notifier. It must be called after SetupTestDB.
func SetupTestFollowUpService(t *testing.T, now time.Time) func() {
	svc, err := services.NewFollowUpService(services.FollowUpServiceOptions{
		FollowUps: stores.NewFollowUpStore(initializers.DB),
		People:    stores.NewMemberStore(initializers.DB),
		Staff:     stores.NewStaffStore(initializers.DB),
		Now:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("Failed to create follow-up service: %v", err)
	}

	original := services.GetFollowUpService()
	services.SetFollowUpService(svc)
	return func() {
		services.SetFollowUpService(original)
	}
}

// SetupTestContext creates a test Gin context with a response recorder
func SetupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

// SetAuthenticatedUser sets the currentUser and admin values in the Gin context
// This simulates what the CheckAuth middleware does
func SetAuthenticatedUser(c *gin.Context, user models.UserProfile, isAdmin bool) {
	c.Set("currentUser", user)
	c.Set("admin", isAdmin)
}
