package handlers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/motivohq/motivo-server/internal/models"
)

// Pagination bounds applied to list endpoints.
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// parsePage extracts offset/limit query parameters with defaults and bounds.
func parsePage(c *gin.Context) (offset, limit int) {
	limit = defaultPageLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return offset, limit
}

// quoteJSON serializes a quote for the wire.
func quoteJSON(quote *models.Quote) gin.H {
	tags := []string{}
	if len(quote.Tags) > 0 {
		_ = json.Unmarshal(quote.Tags, &tags)
	}
	return gin.H{
		"id":         quote.ID,
		"text":       quote.Text,
		"author":     quote.Author,
		"source":     quote.Source,
		"tags":       tags,
		"views":      quote.Views,
		"created_at": quote.CreatedAt,
		"updated_at": quote.UpdatedAt,
	}
}

// userJSON serializes a user profile for the wire. The IdP subject is internal
// plumbing and is not exposed.
func userJSON(user *models.User) gin.H {
	preferences := map[string]any{}
	if len(user.Preferences) > 0 {
		_ = json.Unmarshal(user.Preferences, &preferences)
	}
	return gin.H{
		"id":            user.ID,
		"email":         user.Email,
		"display_name":  user.DisplayName,
		"role":          user.Role,
		"preferences":   preferences,
		"favorites":     user.Favorites,
		"quotes_viewed": user.QuotesViewed,
		"last_login":    user.LastLogin,
		"created_at":    user.CreatedAt,
		"updated_at":    user.UpdatedAt,
	}
}

// activityJSON serializes an activity record for the wire.
func activityJSON(record *models.ActivityRecord) gin.H {
	details := map[string]any{}
	if len(record.Details) > 0 {
		_ = json.Unmarshal(record.Details, &details)
	}
	return gin.H{
		"id":         record.ID,
		"user_id":    record.UserID,
		"action":     record.Action,
		"details":    details,
		"ip":         record.IP,
		"user_agent": record.UserAgent,
		"created_at": record.CreatedAt,
	}
}
