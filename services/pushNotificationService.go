package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/ShepherdLoop/models"
	"github.com/doug-martin/goqu/v9"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// fcmSender is the part of the FCM client the push service uses.
type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type PushNotificationService struct {
	db        *goqu.Database
	fcmClient fcmSender
}

type NotificationPayload struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Badge    string            `json:"badge,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

var pushService *PushNotificationService

// InitPushNotificationService connects to FCM. Tokens are still looked up when
// Firebase cannot be initialised, but sends fail.
func InitPushNotificationService(ctx context.Context, db *goqu.Database) *PushNotificationService {
	pushService = &PushNotificationService{db: db}

	serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")

	var app *firebase.App
	var err error

	if serviceAccountPath != "" {
		app, err = firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
		if err != nil {
			log.Printf("Failed to initialize Firebase app with service account: %v", err)
			return pushService
		}
		log.Println("Firebase initialized with service account file")
	} else {
		app, err = firebase.NewApp(ctx, nil)
		if err != nil {
			log.Printf("Failed to initialize Firebase app with ADC: %v", err)
			return pushService
		}
		log.Println("Firebase initialized with Application Default Credentials")
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("Failed to get Firebase messaging client: %v", err)
		return pushService
	}
	pushService.fcmClient = client

	log.Println("Push notification service initialized successfully with FCM")
	return pushService
}

func GetPushNotificationService() *PushNotificationService {
	return pushService
}

func (s *PushNotificationService) SendNotificationToUser(ctx context.Context, userID int, payload NotificationPayload) error {
	var tokens []models.PushToken
	err := s.db.From("user_push_tokens").
		Where(goqu.C("user_profile_id").Eq(userID)).
		ScanStructsContext(ctx, &tokens)
	if err != nil {
		return fmt.Errorf("failed to get push tokens for user %d: %w", userID, err)
	}

	if len(tokens) == 0 {
		return fmt.Errorf("no push tokens found for user %d", userID)
	}

	// One bad token must not stop delivery to the user's other devices.
	for _, token := range tokens {
		if err := s.sendToToken(ctx, token, payload); err != nil {
			log.Printf("Failed to send notification to token %s: %v", token.PushToken, err)
		}
	}

	return nil
}

func (s *PushNotificationService) SendNotificationToUsers(ctx context.Context, userIDs []int, payload NotificationPayload) error {
	failed := 0
	for _, userID := range userIDs {
		if err := s.SendNotificationToUser(ctx, userID, payload); err != nil {
			failed++
			log.Printf("Failed to send notification to user %d: %v", userID, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to send notifications to %d users", failed)
	}
	return nil
}

func (s *PushNotificationService) sendToToken(ctx context.Context, pushToken models.PushToken, payload NotificationPayload) error {
	if s.fcmClient == nil {
		return fmt.Errorf("FCM client not initialized")
	}

	message := &messaging.Message{
		Token: pushToken.PushToken,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
	}

	switch pushToken.Platform {
	case "ios":
		message.APNS = &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: payload.Title,
						Body:  payload.Body,
					},
					Sound: payload.Sound,
				},
			},
		}
		if payload.Badge != "" {
			if badgeNum, err := strconv.Atoi(payload.Badge); err == nil {
				message.APNS.Payload.Aps.Badge = &badgeNum
			}
		}
		if payload.Priority == "high" {
			message.APNS.Headers = map[string]string{
				"apns-priority": "10",
			}
		}
	case "android":
		message.Android = &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Title: payload.Title,
				Body:  payload.Body,
				Sound: payload.Sound,
			},
			Priority: "normal",
		}
		if payload.Priority == "high" {
			message.Android.Priority = "high"
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	response, err := s.fcmClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send FCM message: %w", err)
	}

	log.Printf("Successfully sent FCM notification. Message ID: %s", response)
	return nil
}
