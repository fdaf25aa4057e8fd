package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ShepherdLoop/controllers"
	"github.com/ShepherdLoop/initializers"
	"github.com/ShepherdLoop/middlewares"
	"github.com/ShepherdLoop/services"
)

func init() {
	initializers.LoadEnv()
	initializers.ConnectDB()

	svc, err := initializers.BuildFollowUpService(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize follow-up service: %v", err)
	}
	services.SetFollowUpService(svc)
}

func main() {
	router := gin.Default()

	getKey := func(c *gin.Context) string {
		if gin.Mode() == gin.DebugMode {
			return c.FullPath()
		}
		return c.ClientIP()
	}

	router.POST("/login", middlewares.RateLimitMiddleware(2, 2, getKey), controllers.StaffLogin)
	router.GET("/metrics", middlewares.RateLimitMiddleware(5, 5, getKey), gin.WrapH(promhttp.Handler()))

	auth := router.Group("/")
	auth.Use(middlewares.CheckAuth)
	auth.Use(middlewares.RateLimitMiddleware(10, 10, getKey))
	{
		auth.GET("/users/me", controllers.GetStaffProfile)

		// follow-up routes
		auth.POST("/follow-ups", controllers.CreateFollowUp)
		auth.GET("/follow-ups/due", controllers.GetDueFollowUps)
		auth.GET("/follow-ups/:follow_up_id", controllers.GetFollowUp)
		auth.PATCH("/follow-ups/:follow_up_id", controllers.UpdateFollowUp)
		auth.POST("/follow-ups/:follow_up_id/attempts", controllers.AddFollowUpAttempt)
		auth.POST("/follow-ups/:follow_up_id/handoff", controllers.HandoffFollowUp)
		auth.POST("/follow-ups/:follow_up_id/messages", controllers.SendFollowUpMessage)

		// push token route
		auth.POST("/users/push-token", controllers.StorePushToken)

		// notification routes
		auth.GET("/users/:user_profile_id/notifications", controllers.GetUserNotifications)
		auth.PATCH("/users/:user_profile_id/notifications/mark-all-read", controllers.MarkAllNotificationsAsRead)
		auth.PATCH("/users/:user_profile_id/notifications/:notification_id", controllers.ToggleUserNotificationStatus)
		auth.DELETE("/users/:user_profile_id/notifications/:notification_id", controllers.DeleteUserNotification)

		//admin only routes
		admin := auth.Group("/")
		admin.Use(middlewares.CheckAdmin)
		admin.Use(middlewares.RateLimitMiddleware(5, 5, getKey))
		{
			admin.POST("/notifications/send", controllers.SendPushNotification)
		}
	}

	if err := router.Run(); err != nil {
		log.Fatal(err)
	}
}
