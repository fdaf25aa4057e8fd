package controllers

import (
	"database/sql/driver"
	"time"

	"github.com/ShepherdLoop/models"
)

// Test fixture data for use in tests

// MockUser creates a follow-up volunteer for testing
func MockUser() models.UserProfile {
	phone := "1234567890"
	return models.UserProfile{
		User_Profile_ID: 1,
		Username:        "testuser",
		First_Name:      "Test",
		Last_Name:       "User",
		Email:           "test@example.com",
		Phone_Number:    &phone,
		Admin:           false,
		Created_By:      1,
		Updated_By:      1,
		Datetime_Create: time.Now(),
		Datetime_Update: time.Now(),
	}
}

// MockAdminUser creates a pastor with admin rights for testing
func MockAdminUser() models.UserProfile {
	phone := "9876543210"
	return models.UserProfile{
		User_Profile_ID: 2,
		Username:        "adminuser",
		First_Name:      "Admin",
		Last_Name:       "User",
		Email:           "admin@example.com",
		Phone_Number:    &phone,
		Admin:           true,
		Prayer_Team:     true,
		Created_By:      1,
		Updated_By:      1,
		Datetime_Create: time.Now(),
		Datetime_Update: time.Now(),
	}
}

// followUpColumns is the full follow_up column list in table order.
var followUpColumns = []string{
	"follow_up_id", "person_type", "person_id", "new_attendee", "status", "response_category",
	"required_attempts", "frequency", "attempts", "next_follow_up_date", "schedule_end_date",
	"prayer_requests", "handed_off_to_cluster", "assigned_to", "notes", "event_context",
	"version", "created_by", "updated_by", "datetime_create", "datetime_update",
}

// MockFollowUpRow returns a Pending follow-up for a new attendee with no attempts.
func MockFollowUpRow(id int, now time.Time) []driver.Value {
	next := now.AddDate(0, 0, 3)
	return []driver.Value{
		id, "New Convert", nil, []byte(`{"firstName":"Ama","lastName":"Mensah","email":"ama@example.com","phoneNumber":"+233 20 111 2222"}`),
		"Pending", "Undecided", 8, "2/week", []byte(`[]`), next, now.AddDate(0, 0, 28),
		[]byte(`[]`), nil, 1, "Met at the welcome desk", nil,
		1, 1, 1, now, now,
	}
}

// MockMemberRow returns a member row with the given id, already in cluster 3
func MockMemberRow(id int, now time.Time) []driver.Value {
	return []driver.Value{id, "Kofi", "Boateng", "kofi@example.com", "0201234567", nil, "Male", "Member", 3, 1, 1, 1, now, now}
}

var memberColumns = []string{
	"member_id", "first_name", "last_name", "email", "phone_number", "whatsapp_number",
	"gender", "member_type", "cluster_id", "center_id", "created_by", "updated_by",
	"datetime_create", "datetime_update",
}
