package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func jsonRequest(method, path string, body interface{}) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestGetFollowUp(t *testing.T) {
	tests := []struct {
		name           string
		followUpID     string
		found          bool
		expectQuery    bool
		expectedStatus int
	}{
		{"existing follow-up", "5", true, true, http.StatusOK},
		{"missing follow-up", "5", false, true, http.StatusNotFound},
		{"invalid follow-up ID", "abc", false, false, http.StatusBadRequest},
		{"non-positive follow-up ID", "0", false, false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()
			defer SetupTestFollowUpService(t, testNow)()

			if tt.expectQuery {
				rows := sqlmock.NewRows(followUpColumns)
				if tt.found {
					rows.AddRow(MockFollowUpRow(5, testNow)...)
				}
				mock.ExpectQuery(`SELECT .* FROM "follow_up"`).WillReturnRows(rows)
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, MockUser(), false)
			c.Params = []gin.Param{{Key: "follow_up_id", Value: tt.followUpID}}
			c.Request = httptest.NewRequest("GET", "/follow-ups/"+tt.followUpID, nil)

			GetFollowUp(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			response := decodeBody(t, w)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, float64(5), response["followUpId"])
				assert.Nil(t, response["personId"])
				attendee := response["newAttendee"].(map[string]interface{})
				assert.Equal(t, "Ama", attendee["firstName"])
			} else {
				assert.NotNil(t, response["error"])
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateFollowUp(t *testing.T) {
	t.Run("new attendee gets the New Convert plan", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		mock.ExpectQuery(`INSERT INTO "follow_up"`).
			WillReturnRows(sqlmock.NewRows([]string{"follow_up_id"}).AddRow(42))

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Request = jsonRequest("POST", "/follow-ups", map[string]interface{}{
			"personType":  "New Convert",
			"newAttendee": map[string]string{"firstName": "Ama", "phoneNumber": "020 111 2222"},
			"assignedTo":  2,
		})

		CreateFollowUp(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, float64(42), response["followUpId"])
		assert.Equal(t, "Pending", response["status"])
		assert.Equal(t, "Undecided", response["responseCategory"])
		assert.Equal(t, float64(8), response["requiredAttempts"])
		assert.Equal(t, "2/week", response["frequency"])
		assert.Equal(t, testNow.AddDate(0, 0, 3).Format(time.RFC3339), response["nextFollowUpDate"])
		assert.Equal(t, testNow.AddDate(0, 0, 28).Format(time.RFC3339), response["scheduleEndDate"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown person id", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		mock.ExpectQuery(`SELECT .* FROM "member"`).WillReturnRows(sqlmock.NewRows(memberColumns))

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Request = jsonRequest("POST", "/follow-ups", map[string]interface{}{
			"personType": "Member",
			"personId":   99,
			"assignedTo": 2,
		})

		CreateFollowUp(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("both person id and new attendee", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Request = jsonRequest("POST", "/follow-ups", map[string]interface{}{
			"personType":  "Attendee",
			"personId":    4,
			"newAttendee": map[string]string{"firstName": "Ama"},
			"assignedTo":  2,
		})

		CreateFollowUp(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing person type", func(t *testing.T) {
		_, _, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Request = jsonRequest("POST", "/follow-ups", map[string]interface{}{
			"newAttendee": map[string]string{"firstName": "Ama"},
			"assignedTo":  2,
		})

		CreateFollowUp(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAddFollowUpAttempt(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]interface{}
		rowsAffected   int64
		expectUpdate   bool
		expectedStatus int
		expectedState  string
	}{
		{
			name:           "promising attempt keeps follow-up open",
			body:           map[string]interface{}{"channel": "phone_call", "notes": "Very interested in the youth service"},
			rowsAffected:   1,
			expectUpdate:   true,
			expectedStatus: http.StatusOK,
			expectedState:  "In Progress",
		},
		{
			name:           "cold attempt fails the follow-up",
			body:           map[string]interface{}{"channel": "sms", "outcome": "Negative"},
			rowsAffected:   1,
			expectUpdate:   true,
			expectedStatus: http.StatusOK,
			expectedState:  "Failed",
		},
		{
			name:           "concurrent modification",
			body:           map[string]interface{}{"channel": "email", "notes": "left a voicemail"},
			rowsAffected:   0,
			expectUpdate:   true,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "missing channel",
			body:           map[string]interface{}{"notes": "called"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, cleanup := SetupTestDB(t)
			defer cleanup()
			defer SetupTestFollowUpService(t, testNow)()

			if tt.expectUpdate {
				mock.ExpectQuery(`SELECT .* FROM "follow_up"`).
					WillReturnRows(sqlmock.NewRows(followUpColumns).AddRow(MockFollowUpRow(5, testNow)...))
				mock.ExpectExec(`UPDATE "follow_up"`).
					WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))
			}

			c, w := SetupTestContext()
			SetAuthenticatedUser(c, MockUser(), false)
			c.Params = []gin.Param{{Key: "follow_up_id", Value: "5"}}
			c.Request = jsonRequest("POST", "/follow-ups/5/attempts", tt.body)

			AddFollowUpAttempt(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			response := decodeBody(t, w)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedState, response["status"])
				assert.Len(t, response["attempts"], 1)
				assert.Equal(t, float64(2), response["version"])
			} else {
				assert.NotNil(t, response["error"])
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandoffFollowUp(t *testing.T) {
	t.Run("new attendee becomes a member of the cluster", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		mock.ExpectQuery(`SELECT .* FROM "follow_up"`).
			WillReturnRows(sqlmock.NewRows(followUpColumns).AddRow(MockFollowUpRow(5, testNow)...))
		mock.ExpectQuery(`SELECT .* FROM "cluster"`).
			WillReturnRows(sqlmock.NewRows([]string{"cluster_id", "cluster_name", "center_id", "leader_id"}).AddRow(3, "East Legon", 1, nil))
		mock.ExpectQuery(`SELECT .* FROM "member" WHERE \(regexp_replace`).
			WillReturnRows(sqlmock.NewRows(memberColumns))
		mock.ExpectBegin()
		expectPhoneLock(mock, sqlmock.NewRows(memberColumns))
		mock.ExpectQuery(`INSERT INTO "member"`).
			WillReturnRows(sqlmock.NewRows([]string{"member_id"}).AddRow(77))
		mock.ExpectExec(`UPDATE "follow_up"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Params = []gin.Param{{Key: "follow_up_id", Value: "5"}}
		c.Request = jsonRequest("POST", "/follow-ups/5/handoff", map[string]interface{}{"clusterId": 3})

		HandoffFollowUp(c)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, float64(77), response["personId"])
		assert.Nil(t, response["newAttendee"])
		assert.Equal(t, "Completed", response["status"])
		assert.Equal(t, "Promising", response["responseCategory"])
		assert.Nil(t, response["nextFollowUpDate"])
		handoff := response["handedOffToCluster"].(map[string]interface{})
		assert.Equal(t, float64(3), handoff["clusterId"])
		assert.Equal(t, float64(0), handoff["clusterLeadId"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member insert failure rolls back", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		mock.ExpectQuery(`SELECT .* FROM "follow_up"`).
			WillReturnRows(sqlmock.NewRows(followUpColumns).AddRow(MockFollowUpRow(5, testNow)...))
		mock.ExpectQuery(`SELECT .* FROM "cluster"`).
			WillReturnRows(sqlmock.NewRows([]string{"cluster_id", "cluster_name", "center_id", "leader_id"}).AddRow(3, "East Legon", 1, 9))
		mock.ExpectQuery(`SELECT .* FROM "member"`).
			WillReturnRows(sqlmock.NewRows(memberColumns))
		mock.ExpectBegin()
		expectPhoneLock(mock, sqlmock.NewRows(memberColumns))
		mock.ExpectQuery(`INSERT INTO "member"`).WillReturnError(assert.AnError)
		mock.ExpectRollback()

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Params = []gin.Param{{Key: "follow_up_id", Value: "5"}}
		c.Request = jsonRequest("POST", "/follow-ups/5/handoff", map[string]interface{}{"clusterId": 3})

		HandoffFollowUp(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member registered meanwhile is linked instead of duplicated", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		mock.ExpectQuery(`SELECT .* FROM "follow_up"`).
			WillReturnRows(sqlmock.NewRows(followUpColumns).AddRow(MockFollowUpRow(5, testNow)...))
		mock.ExpectQuery(`SELECT .* FROM "cluster"`).
			WillReturnRows(sqlmock.NewRows([]string{"cluster_id", "cluster_name", "center_id", "leader_id"}).AddRow(3, "East Legon", 1, nil))
		mock.ExpectQuery(`SELECT .* FROM "member" WHERE \(regexp_replace`).
			WillReturnRows(sqlmock.NewRows(memberColumns))
		mock.ExpectBegin()
		expectPhoneLock(mock, sqlmock.NewRows(memberColumns).AddRow(MockMemberRow(31, testNow)...))
		mock.ExpectExec(`UPDATE "follow_up" SET .*"person_id"=31`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Params = []gin.Param{{Key: "follow_up_id", Value: "5"}}
		c.Request = jsonRequest("POST", "/follow-ups/5/handoff", map[string]interface{}{"clusterId": 3})

		HandoffFollowUp(c)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, float64(31), response["personId"])
		assert.Equal(t, "Completed", response["status"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown cluster", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		mock.ExpectQuery(`SELECT .* FROM "follow_up"`).
			WillReturnRows(sqlmock.NewRows(followUpColumns).AddRow(MockFollowUpRow(5, testNow)...))
		mock.ExpectQuery(`SELECT .* FROM "cluster"`).
			WillReturnRows(sqlmock.NewRows([]string{"cluster_id", "cluster_name", "center_id", "leader_id"}))

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Params = []gin.Param{{Key: "follow_up_id", Value: "5"}}
		c.Request = jsonRequest("POST", "/follow-ups/5/handoff", map[string]interface{}{"clusterId": 12})

		HandoffFollowUp(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// expectPhoneLock expects the hand-off transaction to lock the attendee's phone
// and look the member up again, answering with rows.
func expectPhoneLock(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("233201112222").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM "member" WHERE \(regexp_replace`).
		WillReturnRows(rows)
}

func TestSendFollowUpMessage(t *testing.T) {
	t.Run("channel without a sender reports false", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		mock.ExpectQuery(`SELECT .* FROM "follow_up"`).
			WillReturnRows(sqlmock.NewRows(followUpColumns).AddRow(MockFollowUpRow(5, testNow)...))

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Params = []gin.Param{{Key: "follow_up_id", Value: "5"}}
		c.Request = jsonRequest("POST", "/follow-ups/5/messages", map[string]interface{}{
			"message":  "Great to meet you on Sunday!",
			"channels": []string{"email", "whatsapp"},
		})

		SendFollowUpMessage(c)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeBody(t, w)
		assert.Equal(t, false, response["success"])
		assert.Equal(t, map[string]interface{}{"email": false, "whatsapp": false}, response["results"])
		assert.Equal(t, "Great to meet you on Sunday!", response["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unsupported channel", func(t *testing.T) {
		_, mock, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Params = []gin.Param{{Key: "follow_up_id", Value: "5"}}
		c.Request = jsonRequest("POST", "/follow-ups/5/messages", map[string]interface{}{
			"message":  "Hello",
			"channels": []string{"visit"},
		})

		SendFollowUpMessage(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no channels", func(t *testing.T) {
		_, _, cleanup := SetupTestDB(t)
		defer cleanup()
		defer SetupTestFollowUpService(t, testNow)()

		c, w := SetupTestContext()
		SetAuthenticatedUser(c, MockUser(), false)
		c.Params = []gin.Param{{Key: "follow_up_id", Value: "5"}}
		c.Request = jsonRequest("POST", "/follow-ups/5/messages", map[string]interface{}{
			"message":  "Hello",
			"channels": []string{},
		})

		SendFollowUpMessage(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetDueFollowUps(t *testing.T) {
	_, mock, cleanup := SetupTestDB(t)
	defer cleanup()
	defer SetupTestFollowUpService(t, testNow)()

	columns := append(append([]string{}, followUpColumns...),
		"assignee_first_name", "assignee_last_name", "assignee_username", "assignee_email")
	row := append(MockFollowUpRow(5, testNow.AddDate(0, 0, -4)), "Esi", "Owusu", "esi", "esi@example.com")
	mock.ExpectQuery(`SELECT f\.\*.*FROM "follow_up" AS "f" LEFT JOIN "user_profile" AS "u"`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row...))

	c, w := SetupTestContext()
	SetAuthenticatedUser(c, MockUser(), false)
	c.Request = httptest.NewRequest("GET", "/follow-ups/due", nil)

	GetDueFollowUps(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var due []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &due))
	require.Len(t, due, 1)
	assert.Equal(t, "Esi Owusu", due[0]["assignedToName"])
	assert.Equal(t, "esi@example.com", due[0]["assignedToEmail"])
	assert.Equal(t, float64(5), due[0]["followUpId"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
