package controllers

import (
	"net/http"
	"strconv"

	"github.com/ShepherdLoop/initializers"
	"github.com/ShepherdLoop/models"
	"github.com/ShepherdLoop/services"

	"github.com/doug-martin/goqu/v9"
	"github.com/gin-gonic/gin"
)

// inboxOwner parses :user_profile_id and checks the caller may act on that inbox.
func inboxOwner(c *gin.Context, action string) (int, bool) {
	currentUser := c.MustGet("currentUser").(models.UserProfile)
	isAdmin := c.MustGet("admin").(bool)

	userID, err := strconv.Atoi(c.Param("user_profile_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user profile ID", "details": err.Error()})
		return 0, false
	}

	if userID != currentUser.User_Profile_ID && !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to " + action + " this user's notifications"})
		return 0, false
	}
	return userID, true
}

func GetUserNotifications(c *gin.Context) {
	userID, ok := inboxOwner(c, "view")
	if !ok {
		return
	}

	query := initializers.DB.From("notification").
		Where(goqu.C("user_profile_id").Eq(userID))
	if c.Query("status") == models.NotificationStatusUnread {
		query = query.Where(goqu.C("notification_status").Eq(models.NotificationStatusUnread))
	}

	notifications := []models.Notification{}
	dbErr := query.
		Order(goqu.C("datetime_create").Desc()).
		ScanStructsContext(c.Request.Context(), &notifications)

	if dbErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": dbErr.Error()})
		return
	}

	c.JSON(http.StatusOK, notifications)
}

func ToggleUserNotificationStatus(c *gin.Context) {
	userID, ok := inboxOwner(c, "modify")
	if !ok {
		return
	}

	notificationID, err := strconv.Atoi(c.Param("notification_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID", "details": err.Error()})
		return
	}

	var currentStatus string
	found, dbErr := initializers.DB.From("notification").
		Select("notification_status").
		Where(
			goqu.C("notification_id").Eq(notificationID),
			goqu.C("user_profile_id").Eq(userID),
		).
		ScanValContext(c.Request.Context(), &currentStatus)

	if dbErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": dbErr.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	newStatus := models.NotificationStatusRead
	if currentStatus == models.NotificationStatusRead {
		newStatus = models.NotificationStatusUnread
	}

	result, err := initializers.DB.Update("notification").
		Set(goqu.Record{
			"notification_status": newStatus,
			"updated_by":          c.MustGet("currentUser").(models.UserProfile).User_Profile_ID,
			"datetime_update":     goqu.L("NOW()"),
		}).
		Where(goqu.C("notification_id").Eq(notificationID)).
		Executor().ExecContext(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification", "details": err.Error()})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as " + newStatus})
}

func DeleteUserNotification(c *gin.Context) {
	userID, ok := inboxOwner(c, "delete")
	if !ok {
		return
	}

	notificationID, err := strconv.Atoi(c.Param("notification_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID", "details": err.Error()})
		return
	}

	var notificationUserID int
	found, dbErr := initializers.DB.From("notification").
		Select("user_profile_id").
		Where(goqu.C("notification_id").Eq(notificationID)).
		ScanValContext(c.Request.Context(), &notificationUserID)

	if dbErr != nil || !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	if notificationUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This notification does not belong to the specified user"})
		return
	}

	result, err := initializers.DB.Delete("notification").
		Where(goqu.C("notification_id").Eq(notificationID)).
		Executor().ExecContext(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification", "details": err.Error()})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}

func MarkAllNotificationsAsRead(c *gin.Context) {
	userID, ok := inboxOwner(c, "modify")
	if !ok {
		return
	}

	result, err := initializers.DB.Update("notification").
		Set(goqu.Record{"notification_status": models.NotificationStatusRead}).
		Where(
			goqu.C("user_profile_id").Eq(userID),
			goqu.C("notification_status").Eq(models.NotificationStatusUnread),
		).
		Executor().ExecContext(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications as read", "details": err.Error()})
		return
	}

	rowsAffected, _ := result.RowsAffected()

	c.JSON(http.StatusOK, gin.H{
		"message":      "All notifications marked as read",
		"updatedCount": rowsAffected,
	})
}

// StorePushToken registers the caller's device. A token already on file is
// re-pointed at the caller.
func StorePushToken(c *gin.Context) {
	currentUser := c.MustGet("currentUser").(models.UserProfile)

	var request models.PushTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(request.PushToken) < 10 || len(request.PushToken) > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid push token length"})
		return
	}

	_, err := initializers.DB.Insert("user_push_tokens").
		Rows(goqu.Record{
			"user_profile_id": currentUser.User_Profile_ID,
			"push_token":      request.PushToken,
			"platform":        request.Platform,
		}).
		OnConflict(goqu.DoUpdate("push_token", goqu.Record{
			"user_profile_id": currentUser.User_Profile_ID,
			"platform":        request.Platform,
			"updated_at":      goqu.L("NOW()"),
		})).
		Executor().ExecContext(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store push token", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push token stored successfully"})
}

func SendPushNotification(c *gin.Context) {
	var request models.SendNotificationRequest

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pushService := services.GetPushNotificationService()
	if pushService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notification service not available"})
		return
	}

	payload := services.NotificationPayload{
		Title:    request.Title,
		Body:     request.Body,
		Data:     request.Data,
		Sound:    request.Sound,
		Priority: request.Priority,
	}

	err := pushService.SendNotificationToUsers(c.Request.Context(), request.UserIDs, payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send push notifications", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Push notifications sent successfully",
		"userIds": request.UserIDs,
	})
}
