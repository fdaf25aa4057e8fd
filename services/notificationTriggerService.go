package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/ShepherdLoop/models"
	"github.com/doug-martin/goqu/v9"
)

type userPusher interface {
	SendNotificationToUser(ctx context.Context, userID int, payload NotificationPayload) error
}

// NotificationService writes inbox rows for staff and pushes them to their
// devices. It never returns errors to the caller.
type NotificationService struct {
	db   *goqu.Database
	push userPusher
}

// NewNotificationService accepts a nil push; notifications are then inbox-only.
func NewNotificationService(db *goqu.Database, push *PushNotificationService) *NotificationService {
	n := &NotificationService{db: db}
	if push != nil {
		n.push = push
	}
	return n
}

func (n *NotificationService) Notify(ctx context.Context, req models.NotificationRequest) {
	if req.Recipient_ID == 0 {
		log.Printf("Skipping %s notification without a recipient", req.Type)
		return
	}

	notification := models.Notification{
		User_Profile_ID:      req.Recipient_ID,
		Notification_Type:    req.Type,
		Notification_Title:   req.Title,
		Notification_Message: req.Message,
		Notification_Status:  models.NotificationStatusUnread,
		Created_By:           req.Actor_ID,
		Updated_By:           req.Actor_ID,
	}
	if req.Link_Url != "" {
		link := req.Link_Url
		notification.Link_Url = &link
	}
	if req.Follow_Up_ID != 0 {
		followUpID := req.Follow_Up_ID
		notification.Target_Follow_Up_ID = &followUpID
	}

	_, err := n.db.Insert("notification").Rows(notification).Executor().ExecContext(ctx)
	if err != nil {
		log.Printf("Failed to create %s notification for user %d: %v", req.Type, req.Recipient_ID, err)
	}

	if n.push == nil {
		return
	}

	payload := NotificationPayload{
		Title: req.Title,
		Body:  req.Message,
		Data: map[string]string{
			"type": req.Type,
		},
	}
	if req.Follow_Up_ID != 0 {
		payload.Data["followUpId"] = strconv.Itoa(req.Follow_Up_ID)
	}
	if req.Link_Url != "" {
		payload.Data["linkUrl"] = req.Link_Url
	}

	if err := n.push.SendNotificationToUser(ctx, req.Recipient_ID, payload); err != nil {
		log.Printf("Failed to send %s push notification to user %d: %v", req.Type, req.Recipient_ID, err)
	}
}

// NotifyDebounced sends req unless the same type was sent to the same
// recipient for the same follow-up within window.
func (n *NotificationService) NotifyDebounced(ctx context.Context, req models.NotificationRequest, window time.Duration) {
	if req.Recipient_ID == 0 {
		log.Printf("Skipping debounced %s notification without a recipient", req.Type)
		return
	}

	minutes := int(window / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if !n.shouldSendDebounced(ctx, req.Type, req.Recipient_ID, req.Follow_Up_ID, minutes) {
		return
	}
	n.Notify(ctx, req)
}

// shouldSendDebounced claims the debounce slot with an atomic upsert and also
// clears records older than a day. On database errors the notification is
// allowed through.
func (n *NotificationService) shouldSendDebounced(ctx context.Context, notifType string, targetUserID int, entityID int, windowMinutes int) bool {
	_, cleanupErr := n.db.Delete("notification_debounce").
		Where(goqu.L("last_triggered_at < NOW() - INTERVAL '24 hours'")).
		Executor().ExecContext(ctx)
	if cleanupErr != nil {
		log.Printf("Error cleaning up old debounce records: %v", cleanupErr)
	}

	// The conflict update only fires outside the window, so no returned row
	// means the previous send is still fresh.
	query := `
		INSERT INTO notification_debounce (notification_type, target_user_id, entity_id, last_triggered_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (notification_type, target_user_id, entity_id)
		DO UPDATE SET last_triggered_at = NOW()
		WHERE notification_debounce.last_triggered_at < NOW() - ($4 || ' minutes')::INTERVAL
		RETURNING debounce_id
	`

	var debounceID int
	err := n.db.QueryRowContext(ctx, query, notifType, targetUserID, entityID, windowMinutes).Scan(&debounceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false
		}
		log.Printf("Error in debounce check: %v", err)
		return true
	}

	return true
}
