package models

import "time"

// Notification type constants
const (
	NotificationTypeFollowUpAssigned   = "FOLLOW_UP_ASSIGNED"
	NotificationTypeFollowUpDue        = "FOLLOW_UP_DUE"
	NotificationTypePrayerRequestAdded = "PRAYER_REQUEST_ADDED"
	NotificationTypeFollowUpHandoff    = "FOLLOW_UP_HANDOFF"
)

// Notification status constants
const (
	NotificationStatusRead   = "READ"
	NotificationStatusUnread = "UNREAD"
)

type Notification struct {
	Notification_ID      int       `json:"notificationId" db:"notification_id" goqu:"skipinsert"`
	User_Profile_ID      int       `json:"userProfileId" db:"user_profile_id"`
	Notification_Type    string    `json:"notificationType" db:"notification_type"`
	Notification_Title   string    `json:"notificationTitle" db:"notification_title"`
	Notification_Message string    `json:"notificationMessage" db:"notification_message"`
	Notification_Status  string    `json:"notificationStatus" db:"notification_status"`
	Link_Url             *string   `json:"linkUrl" db:"link_url"`
	Target_Follow_Up_ID  *int      `json:"targetFollowUpId" db:"target_follow_up_id"`
	DateTime_Create      time.Time `json:"datetimeCreate" db:"datetime_create" goqu:"skipinsert"`
	DateTime_Update      time.Time `json:"datetimeUpdate" db:"datetime_update" goqu:"skipinsert"`
	Created_By           int       `json:"createdBy" db:"created_by"`
	Updated_By           int       `json:"updatedBy" db:"updated_by"`
}

// NotificationRequest is what the follow-up workflow hands to the notification sink.
type NotificationRequest struct {
	Type         string
	Title        string
	Message      string
	Recipient_ID int
	Link_Url     string
	Follow_Up_ID int
	Actor_ID     int
}

type SendNotificationRequest struct {
	UserIDs  []int             `json:"userIds" binding:"required"`
	Title    string            `json:"title" binding:"required"`
	Body     string            `json:"body" binding:"required"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"`
}
