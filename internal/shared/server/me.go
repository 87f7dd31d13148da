package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-typeset/internal/shared/server/middleware"
	"resume-typeset/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint, echoing the caller identity
// the gateway injected.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing caller identity", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"userId": userID})
}
