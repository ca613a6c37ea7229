package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/motivohq/motivo-server/internal/activity"
	"github.com/motivohq/motivo-server/internal/apperr"
	"github.com/motivohq/motivo-server/internal/http/middleware"
	"github.com/motivohq/motivo-server/internal/models"
	"gorm.io/gorm"
)

// AuthHandler serves identity/session endpoints. Token verification and user
// resolution happen in the auth middleware; these handlers only read the
// resolved user off the request context.
type AuthHandler struct {
	db       *gorm.DB
	recorder *activity.Recorder
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, recorder *activity.Recorder) *AuthHandler {
	return &AuthHandler{db: db, recorder: recorder}
}

// Verify returns the resolved profile along with a new-user flag, letting
// clients distinguish a first contact from a returning user.
func (h *AuthHandler) Verify(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apperr.Write(c, apperr.AuthRequired("authentication required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":     userJSON(user),
		"new_user": middleware.IsNewUser(c),
	})
}

// Me returns the resolved profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apperr.Write(c, apperr.AuthRequired("authentication required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}

// Logout records a logout activity. Sessions are stateless bearer tokens, so
// there is nothing to invalidate server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apperr.Write(c, apperr.AuthRequired("authentication required"))
		return
	}
	h.recorder.Record(c.Request.Context(), user.ID, models.ActionLogout, nil, c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
