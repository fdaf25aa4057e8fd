package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ShepherdLoop/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

var notificationColumns = []string{
	"notification_id", "user_profile_id", "notification_type", "notification_title", "notification_message",
	"notification_status", "link_url", "target_follow_up_id", "datetime_create", "datetime_update",
	"created_by", "updated_by",
}

// Test GetUserNotifications - Fetch the staff inbox with authorization
func TestGetUserNotifications(t *testing.T) {
	tests := []struct {
		name             string
		userID           string
		query            string
		currentUser      models.UserProfile
		isAdmin          bool
		hasNotifications bool
		expectedStatus   int
		expectError      bool
	}{
		{"own inbox", "1", "", MockUser(), false, true, http.StatusOK, false},
		{"unread only", "1", "?status=UNREAD", MockUser(), false, true, http.StatusOK, false},
		{"admin views another inbox", "2", "", MockAdminUser(), true, true, http.StatusOK, false},
		{"empty inbox", "1", "", MockUser(), false, false, http.StatusOK, false},
		{"forbidden - another user's inbox", "2", "", MockUser(), false, false, http.StatusForbidden, true},
		{"invalid user ID", "invalid", "", MockUser(), false, false, http.StatusBadRequest, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()

			if !tt.expectError {
				rows := sqlmock.NewRows(notificationColumns)
				if tt.hasNotifications {
					now := time.Now()
					rows.AddRow(1, 1, models.NotificationTypeFollowUpAssigned, "New follow-up assigned",
						"You have been assigned to follow up with Ama Mensah", "UNREAD", "/follow-ups/5", 5, now, now, 2, 2)
				}
				expected := `SELECT .* FROM "notification" WHERE .*"user_profile_id" = ` + tt.userID
				if tt.query != "" {
					expected += `.*"notification_status" = 'UNREAD'`
				}
				mock.ExpectQuery(expected).WillReturnRows(rows)
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, tt.currentUser, tt.isAdmin)
			c.Params = []gin.Param{{Key: "user_profile_id", Value: tt.userID}}
			c.Request = httptest.NewRequest("GET", "/users/"+tt.userID+"/notifications"+tt.query, nil)

			GetUserNotifications(c)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectError {
				var response map[string]interface{}
				_ = json.Unmarshal(w.Body.Bytes(), &response)
				assert.NotNil(t, response["error"])
			} else {
				var notifications []map[string]interface{}
				_ = json.Unmarshal(w.Body.Bytes(), &notifications)
				if tt.hasNotifications {
					assert.Len(t, notifications, 1)
					assert.Equal(t, "/follow-ups/5", notifications[0]["linkUrl"])
					assert.Equal(t, float64(5), notifications[0]["targetFollowUpId"])
				} else {
					assert.Empty(t, notifications)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Test ToggleUserNotificationStatus - Toggle notification READ/UNREAD status
func TestToggleUserNotificationStatus(t *testing.T) {
	tests := []struct {
		name              string
		userID            string
		notificationID    string
		currentUser       models.UserProfile
		isAdmin           bool
		currentStatus     string
		exists            bool
		expectedStatus    int
		expectedNewStatus string
	}{
		{"UNREAD to READ", "1", "1", MockUser(), false, "UNREAD", true, http.StatusOK, "READ"},
		{"READ to UNREAD", "1", "1", MockUser(), false, "READ", true, http.StatusOK, "UNREAD"},
		{"admin for another user", "2", "1", MockAdminUser(), true, "UNREAD", true, http.StatusOK, "READ"},
		{"notification not found", "1", "999", MockUser(), false, "", false, http.StatusNotFound, ""},
		{"forbidden", "2", "1", MockUser(), false, "", false, http.StatusForbidden, ""},
		{"invalid notification ID", "1", "invalid", MockUser(), false, "", false, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()

			authorized := tt.currentUser.User_Profile_ID == 1 || tt.isAdmin
			if tt.notificationID != "invalid" && authorized && (tt.userID == "1" || tt.isAdmin) {
				statusRows := sqlmock.NewRows([]string{"notification_status"})
				if tt.exists {
					statusRows.AddRow(tt.currentStatus)
				}
				mock.ExpectQuery("SELECT").WillReturnRows(statusRows)
				if tt.exists {
					mock.ExpectExec("UPDATE \"notification\"").
						WillReturnResult(sqlmock.NewResult(0, 1))
				}
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, tt.currentUser, tt.isAdmin)
			c.Params = []gin.Param{
				{Key: "user_profile_id", Value: tt.userID},
				{Key: "notification_id", Value: tt.notificationID},
			}
			c.Request = httptest.NewRequest("PATCH", "/users/"+tt.userID+"/notifications/"+tt.notificationID, nil)

			ToggleUserNotificationStatus(c)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			_ = json.Unmarshal(w.Body.Bytes(), &response)

			if tt.expectedStatus != http.StatusOK {
				assert.NotNil(t, response["error"])
			} else {
				assert.True(t, strings.HasSuffix(response["message"].(string), " "+tt.expectedNewStatus))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Test DeleteUserNotification - Delete a notification
func TestDeleteUserNotification(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		currentUser    models.UserProfile
		isAdmin        bool
		ownerID        int
		exists         bool
		expectedStatus int
	}{
		{"own notification", "1", MockUser(), false, 1, true, http.StatusOK},
		{"admin deletes another user's notification", "2", MockAdminUser(), true, 2, true, http.StatusOK},
		{"notification not found", "1", MockUser(), false, 0, false, http.StatusNotFound},
		{"belongs to a different user", "1", MockUser(), false, 999, true, http.StatusForbidden},
		{"forbidden", "2", MockUser(), false, 0, false, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()

			if tt.userID == "1" || tt.isAdmin {
				ownership := sqlmock.NewRows([]string{"user_profile_id"})
				if tt.exists {
					ownership.AddRow(tt.ownerID)
				}
				mock.ExpectQuery("SELECT").WillReturnRows(ownership)
				if tt.expectedStatus == http.StatusOK {
					mock.ExpectExec("DELETE FROM \"notification\"").
						WillReturnResult(sqlmock.NewResult(0, 1))
				}
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, tt.currentUser, tt.isAdmin)
			c.Params = []gin.Param{
				{Key: "user_profile_id", Value: tt.userID},
				{Key: "notification_id", Value: "1"},
			}
			c.Request = httptest.NewRequest("DELETE", "/users/"+tt.userID+"/notifications/1", nil)

			DeleteUserNotification(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Test MarkAllNotificationsAsRead - Mark all unread notifications as read
func TestMarkAllNotificationsAsRead(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		currentUser    models.UserProfile
		isAdmin        bool
		unreadCount    int64
		expectedStatus int
	}{
		{"own inbox", "1", MockUser(), false, 5, http.StatusOK},
		{"admin for another user", "2", MockAdminUser(), true, 3, http.StatusOK},
		{"nothing unread", "1", MockUser(), false, 0, http.StatusOK},
		{"forbidden", "2", MockUser(), false, 0, http.StatusForbidden},
		{"invalid user ID", "invalid", MockUser(), false, 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()

			if tt.expectedStatus == http.StatusOK {
				mock.ExpectExec("UPDATE \"notification\"").
					WillReturnResult(sqlmock.NewResult(0, tt.unreadCount))
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, tt.currentUser, tt.isAdmin)
			c.Params = []gin.Param{{Key: "user_profile_id", Value: tt.userID}}
			c.Request = httptest.NewRequest("PATCH", "/users/"+tt.userID+"/notifications/mark-all-read", nil)

			MarkAllNotificationsAsRead(c)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			_ = json.Unmarshal(w.Body.Bytes(), &response)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, float64(tt.unreadCount), response["updatedCount"])
			} else {
				assert.NotNil(t, response["error"])
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Test StorePushToken - Register a staff device
func TestStorePushToken(t *testing.T) {
	tests := []struct {
		name           string
		tokenData      models.PushTokenRequest
		expectedStatus int
	}{
		{"iOS token", models.PushTokenRequest{PushToken: strings.Repeat("a", 100), Platform: "ios"}, http.StatusOK},
		{"Android token", models.PushTokenRequest{PushToken: strings.Repeat("b", 152), Platform: "android"}, http.StatusOK},
		{"token too short", models.PushTokenRequest{PushToken: "short", Platform: "ios"}, http.StatusBadRequest},
		{"token too long", models.PushTokenRequest{PushToken: strings.Repeat("a", 501), Platform: "ios"}, http.StatusBadRequest},
		{"invalid platform", models.PushTokenRequest{PushToken: strings.Repeat("a", 100), Platform: "web"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()

			if tt.expectedStatus == http.StatusOK {
				mock.ExpectExec(`INSERT INTO "user_push_tokens" .* ON CONFLICT \(push_token\) DO UPDATE`).
					WillReturnResult(sqlmock.NewResult(1, 1))
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, MockUser(), false)
			jsonData, _ := json.Marshal(tt.tokenData)
			c.Request = httptest.NewRequest("POST", "/users/push-token", bytes.NewBuffer(jsonData))
			c.Request.Header.Set("Content-Type", "application/json")

			StorePushToken(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Test SendPushNotification - Admin broadcast to staff devices
func TestSendPushNotification(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name: "service unavailable - push service not initialized",
			requestBody: models.SendNotificationRequest{
				UserIDs: []int{1, 2},
				Title:   "Prayer meeting moved",
				Body:    "Tonight's prayer meeting starts at 7pm",
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "missing required field - userIds",
			requestBody:    map[string]interface{}{"title": "Hi", "body": "Hello"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing required field - body",
			requestBody:    map[string]interface{}{"userIds": []int{1}, "title": "Hi"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "{invalid json}",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := SetupTestContext()

			var jsonData []byte
			if str, ok := tt.requestBody.(string); ok {
				jsonData = []byte(str)
			} else {
				jsonData, _ = json.Marshal(tt.requestBody)
			}

			c.Request = httptest.NewRequest("POST", "/notifications/send", bytes.NewBuffer(jsonData))
			c.Request.Header.Set("Content-Type", "application/json")

			SendPushNotification(c)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			_ = json.Unmarshal(w.Body.Bytes(), &response)
			assert.NotNil(t, response["error"])
		})
	}
}
