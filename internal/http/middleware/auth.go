package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motivohq/motivo-server/internal/activity"
	"github.com/motivohq/motivo-server/internal/apperr"
	"github.com/motivohq/motivo-server/internal/idp"
	"github.com/motivohq/motivo-server/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Context keys set by the auth middleware.
const (
	// ContextUserKey holds the resolved *models.User.
	ContextUserKey = "currentUser"
	// ContextNewUserKey holds true when this request created the user.
	ContextNewUserKey = "currentUserIsNew"
)

// CurrentUser returns the user attached by the auth middleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// IsNewUser reports whether the auth middleware created the user on this request.
func IsNewUser(c *gin.Context) bool {
	value, ok := c.Get(ContextNewUserKey)
	if !ok {
		return false
	}
	isNew, _ := value.(bool)
	return isNew
}

// Authenticate verifies the bearer token, lazily creates or refreshes the
// local user record, and attaches it to the request context. A missing or
// malformed header fails before any store access; verification and storage
// failures both surface as invalid_token.
func Authenticate(db *gorm.DB, verifier idp.Verifier, recorder *activity.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apperr.Abort(c, apperr.AuthRequired("missing authorization header"))
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			apperr.Abort(c, apperr.AuthRequired("invalid authorization format"))
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			apperr.Abort(c, apperr.AuthRequired("empty token"))
			return
		}

		claims, errVerify := verifier.Verify(c.Request.Context(), token)
		if errVerify != nil {
			log.WithError(errVerify).Warn("auth: token verification failed")
			apperr.Abort(c, apperr.InvalidToken(errVerify))
			return
		}

		user, isNew, errResolve := resolveUser(c, db, claims)
		if errResolve != nil {
			log.WithError(errResolve).Warn("auth: user resolution failed")
			apperr.Abort(c, apperr.InvalidToken(errResolve))
			return
		}

		action := models.ActionLogin
		details := map[string]any{"first_login": false}
		if isNew {
			action = models.ActionFirstLogin
			details["first_login"] = true
		}
		recorder.Record(c.Request.Context(), user.ID, action, details, c.ClientIP(), c.Request.UserAgent())

		c.Set(ContextUserKey, user)
		c.Set(ContextNewUserKey, isNew)
		c.Next()
	}
}

// resolveUser finds the local user for the token subject, creating it on
// first contact. Exactly one record per subject: a create that loses a race
// to a concurrent first request falls back to the winner's row.
func resolveUser(c *gin.Context, db *gorm.DB, claims idp.Claims) (*models.User, bool, error) {
	ctx := c.Request.Context()
	now := time.Now().UTC()

	user, errTouch := touchLogin(ctx, db, claims.Subject, now)
	if errTouch == nil {
		return user, false, nil
	}
	if !errors.Is(errTouch, gorm.ErrRecordNotFound) {
		return nil, false, errTouch
	}

	created := models.User{
		SubjectID:    claims.Subject,
		Email:        strings.ToLower(strings.TrimSpace(claims.Email)),
		DisplayName:  claims.Name,
		Role:         models.RoleUser,
		Preferences:  []byte("{}"),
		Favorites:    models.QuoteIDs{},
		QuotesViewed: models.QuoteIDs{},
		LastLogin:    &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if errCreate := db.WithContext(ctx).Create(&created).Error; errCreate != nil {
		// Unique index on subject_id: a concurrent first request won.
		if winner, errRetry := touchLogin(ctx, db, claims.Subject, now); errRetry == nil {
			return winner, false, nil
		}
		return nil, false, errCreate
	}
	return &created, true, nil
}

// touchLogin loads the user for a subject and bumps its last-login timestamp.
func touchLogin(ctx context.Context, db *gorm.DB, subject string, now time.Time) (*models.User, error) {
	var user models.User
	if errFind := db.WithContext(ctx).Where("subject_id = ?", subject).First(&user).Error; errFind != nil {
		return nil, errFind
	}
	if errUpdate := db.WithContext(ctx).Model(&user).Update("last_login", now).Error; errUpdate != nil {
		return nil, errUpdate
	}
	user.LastLogin = &now
	return &user, nil
}
