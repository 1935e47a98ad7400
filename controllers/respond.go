package controllers

import (
	"log"
	"net/http"
	"strconv"

	"checkout-service/apperrors"
	"checkout-service/middlewares"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	middlewares.AbortWithError(c, status, apperrors.PublicMessage(err))
}

func respondBindError(c *gin.Context, err error) {
	middlewares.AbortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
}

func requireUser(c *gin.Context) (int64, bool, bool) {
	userID, isAdmin, ok := middlewares.CurrentUser(c)
	if !ok {
		middlewares.AbortWithError(c, http.StatusUnauthorized, "User not authenticated")
	}
	return userID, isAdmin, ok
}

// authorizeUserParam checks the :userId path segment against the caller.
func authorizeUserParam(c *gin.Context) (int64, bool) {
	callerID, isAdmin, ok := requireUser(c)
	if !ok {
		return 0, false
	}
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(c, apperrors.Validation("Invalid user ID"))
		return 0, false
	}
	if userID != callerID && !isAdmin {
		respondError(c, apperrors.New(apperrors.ErrForbidden, "Not allowed to view these orders"))
		return 0, false
	}
	return userID, true
}

func succeeded(c *gin.Context) bool {
	return c.Writer.Status() >= 200 && c.Writer.Status() < 300
}
