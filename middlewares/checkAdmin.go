package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CheckAdmin must run after CheckAuth. Pastors and other admins pass; everyone
// else is refused.
func CheckAdmin(c *gin.Context) {
	if isAdmin, _ := c.Get("admin"); isAdmin != true {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	c.Next()
}
