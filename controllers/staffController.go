package controllers

import (
	"net/http"
	"os"
	"time"

	"github.com/ShepherdLoop/initializers"
	"github.com/ShepherdLoop/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const staffTokenTTL = 24 * time.Hour

// StaffLogin exchanges a username and password for a bearer token.
func StaffLogin(c *gin.Context) {
	var login models.StaffLogin
	if err := c.ShouldBindJSON(&login); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var staff models.StaffCredentials
	found, err := initializers.DB.From("user_profile").
		Where(
			goqu.C("username").Eq(login.Username),
			goqu.C("deleted").IsNotTrue(),
		).
		ScanStructContext(c.Request.Context(), &staff)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user profile", "details": err.Error()})
		return
	}

	// Unknown usernames and wrong passwords get the same answer.
	if !found || bcrypt.CompareHashAndPassword([]byte(staff.Password), []byte(login.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	role := "staff"
	if staff.Admin {
		role = "admin"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   staff.User_Profile_ID,
		"exp":  time.Now().Add(staffTokenTTL).Unix(),
		"role": role,
	})

	signed, err := token.SignedString([]byte(os.Getenv("SECRET")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in successfully.",
		"token":   signed,
		"user":    staff.UserProfile,
	})
}

func GetStaffProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user":  c.MustGet("currentUser"),
		"admin": c.MustGet("admin"),
	})
}
