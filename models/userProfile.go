package models

import (
	"strings"
	"time"
)

// UserProfile is a staff account: pastors, cluster leads and follow-up volunteers.
type UserProfile struct {
	User_Profile_ID int       `json:"userProfileId" db:"user_profile_id" goqu:"skipinsert"`
	Username        string    `json:"username" db:"username"`
	Email           string    `json:"email" db:"email"`
	First_Name      string    `json:"firstName" db:"first_name"`
	Last_Name       string    `json:"lastName" db:"last_name"`
	Phone_Number    *string   `json:"phoneNumber" db:"phone_number"`
	Admin           bool      `json:"admin" db:"admin" goqu:"skipinsert"`
	Prayer_Team     bool      `json:"prayerTeam" db:"prayer_team"`
	Created_By      int       `json:"createdBy" db:"created_by"`
	Datetime_Create time.Time `json:"datetimeCreate" db:"datetime_create" goqu:"skipinsert"`
	Updated_By      int       `json:"updatedBy" db:"updated_by"`
	Datetime_Update time.Time `json:"datetimeUpdate" db:"datetime_update" goqu:"skipinsert"`
	Deleted         bool      `json:"deleted" db:"deleted" goqu:"skipinsert"`
}

func (u UserProfile) DisplayName() string {
	name := strings.TrimSpace(u.First_Name + " " + u.Last_Name)
	if name == "" {
		return u.Username
	}
	return name
}
