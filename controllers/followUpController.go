package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ShepherdLoop/models"
	"github.com/ShepherdLoop/services"

	"github.com/gin-gonic/gin"
)

func CreateFollowUp(c *gin.Context) {
	currentUser := c.MustGet("currentUser").(models.UserProfile)

	var input models.FollowUpCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	followUp, err := services.GetFollowUpService().CreateFollowUp(c.Request.Context(), input, currentUser.User_Profile_ID)
	if err != nil {
		respondWithFollowUpError(c, "Failed to create follow-up", err)
		return
	}

	c.JSON(http.StatusCreated, followUp)
}

func GetFollowUp(c *gin.Context) {
	followUpID, ok := followUpIDParam(c)
	if !ok {
		return
	}

	followUp, err := services.GetFollowUpService().GetFollowUp(c.Request.Context(), followUpID)
	if err != nil {
		respondWithFollowUpError(c, "Failed to get follow-up", err)
		return
	}

	c.JSON(http.StatusOK, followUp)
}

func GetDueFollowUps(c *gin.Context) {
	due, err := services.GetFollowUpService().GetDueFollowUps(c.Request.Context())
	if err != nil {
		respondWithFollowUpError(c, "Failed to get due follow-ups", err)
		return
	}

	c.JSON(http.StatusOK, due)
}

func UpdateFollowUp(c *gin.Context) {
	currentUser := c.MustGet("currentUser").(models.UserProfile)

	followUpID, ok := followUpIDParam(c)
	if !ok {
		return
	}

	var patch models.FollowUpUpdate
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	followUp, err := services.GetFollowUpService().UpdateFollowUpDetails(c.Request.Context(), followUpID, patch, currentUser.User_Profile_ID)
	if err != nil {
		respondWithFollowUpError(c, "Failed to update follow-up", err)
		return
	}

	c.JSON(http.StatusOK, followUp)
}

func AddFollowUpAttempt(c *gin.Context) {
	currentUser := c.MustGet("currentUser").(models.UserProfile)

	followUpID, ok := followUpIDParam(c)
	if !ok {
		return
	}

	var input models.FollowUpAttemptCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	followUp, err := services.GetFollowUpService().AddFollowUpAttempt(c.Request.Context(), followUpID, input, currentUser.User_Profile_ID)
	if err != nil {
		respondWithFollowUpError(c, "Failed to record follow-up attempt", err)
		return
	}

	c.JSON(http.StatusOK, followUp)
}

func HandoffFollowUp(c *gin.Context) {
	currentUser := c.MustGet("currentUser").(models.UserProfile)

	followUpID, ok := followUpIDParam(c)
	if !ok {
		return
	}

	var input models.FollowUpHandoffRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	followUp, err := services.GetFollowUpService().HandoffToCluster(c.Request.Context(), followUpID, input.Cluster_ID, input.Notes, currentUser.User_Profile_ID)
	if err != nil {
		respondWithFollowUpError(c, "Failed to hand off follow-up", err)
		return
	}

	c.JSON(http.StatusOK, followUp)
}

func SendFollowUpMessage(c *gin.Context) {
	followUpID, ok := followUpIDParam(c)
	if !ok {
		return
	}

	var input models.FollowUpMessageRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := services.GetFollowUpService().SendFollowUpMessage(c.Request.Context(), followUpID, input)
	if err != nil {
		respondWithFollowUpError(c, "Failed to send follow-up message", err)
		return
	}

	// Per-channel failures are reported in the body, not as an error status.
	c.JSON(http.StatusOK, result)
}

func followUpIDParam(c *gin.Context) (int, bool) {
	followUpID, err := strconv.Atoi(c.Param("follow_up_id"))
	if err != nil || followUpID <= 0 {
		details := "follow-up ID must be a positive integer"
		if err != nil {
			details = err.Error()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid follow-up ID", "details": details})
		return 0, false
	}
	return followUpID, true
}

func respondWithFollowUpError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": message, "details": err.Error()})
	case errors.Is(err, models.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": message, "details": err.Error()})
	case errors.Is(err, models.ErrValidationConflict):
		c.JSON(http.StatusConflict, gin.H{"error": message, "details": err.Error()})
	default:
		log.Printf("%s: %v", message, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}
