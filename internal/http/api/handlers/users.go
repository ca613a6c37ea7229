package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motivohq/motivo-server/internal/activity"
	"github.com/motivohq/motivo-server/internal/apperr"
	"github.com/motivohq/motivo-server/internal/http/middleware"
	"github.com/motivohq/motivo-server/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserHandler serves self-service profile, favorites, history, and activity
// endpoints. All routes require the auth middleware.
type UserHandler struct {
	db       *gorm.DB
	recorder *activity.Recorder
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, recorder *activity.Recorder) *UserHandler {
	return &UserHandler{db: db, recorder: recorder}
}

func requireUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apperr.Write(c, apperr.AuthRequired("authentication required"))
		return nil, false
	}
	return user, true
}

// Profile returns the current user's profile.
func (h *UserHandler) Profile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}

// updateProfileRequest defines the request body for profile updates.
// Preferences merge key-by-key: keys absent from the request keep their
// stored values.
type updateProfileRequest struct {
	DisplayName *string        `json:"display_name"`
	Preferences map[string]any `json:"preferences"`
}

// UpdateProfile applies a partial profile update with preference-bag merge.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apperr.Write(c, apperr.Validation("invalid json"))
		return
	}
	if body.DisplayName == nil && len(body.Preferences) == 0 {
		// No state transition: nothing to persist, nothing to audit.
		c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
		return
	}

	now := time.Now().UTC()
	updates := map[string]any{"updated_at": now}
	if body.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*body.DisplayName)
	}
	if len(body.Preferences) > 0 {
		merged := map[string]any{}
		if len(user.Preferences) > 0 {
			_ = json.Unmarshal(user.Preferences, &merged)
		}
		for key, value := range body.Preferences {
			merged[key] = value
		}
		payload, errMarshal := json.Marshal(merged)
		if errMarshal != nil {
			apperr.Write(c, apperr.Validation("invalid preferences"))
			return
		}
		updates["preferences"] = datatypes.JSON(payload)
		user.Preferences = datatypes.JSON(payload)
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", user.ID).Updates(updates).Error; errUpdate != nil {
		apperr.Write(c, errUpdate)
		return
	}
	if body.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*body.DisplayName)
	}
	user.UpdatedAt = now

	h.recorder.Record(c.Request.Context(), user.ID, models.ActionProfileUpdated, nil,
		c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}

// resolveQuotes fetches quote documents for an ID list, preserving list order
// and dropping IDs whose quote no longer exists.
func (h *UserHandler) resolveQuotes(c *gin.Context, ids models.QuoteIDs) ([]gin.H, error) {
	if len(ids) == 0 {
		return []gin.H{}, nil
	}
	var rows []models.Quote
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id IN ?", []uint64(ids)).Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	byID := make(map[uint64]*models.Quote, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		if quote, found := byID[id]; found {
			out = append(out, quoteJSON(quote))
		}
	}
	return out, nil
}

// Favorites returns the user's favorite quotes in list order.
func (h *UserHandler) Favorites(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	out, errResolve := h.resolveQuotes(c, user.Favorites)
	if errResolve != nil {
		apperr.Write(c, errResolve)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": out, "total": len(out)})
}

func parseQuoteIDParam(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("quoteId")), 10, 64)
	if errParse != nil {
		apperr.Write(c, apperr.Validation("invalid quote id"))
		return 0, false
	}
	return id, true
}

func (h *UserHandler) quoteExists(c *gin.Context, id uint64) (bool, error) {
	var quote models.Quote
	errFind := h.db.WithContext(c.Request.Context()).Select("id").First(&quote, id).Error
	if errFind == nil {
		return true, nil
	}
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, errFind
}

// AddFavorite appends a quote to the favorites list. Re-adding an existing
// favorite is a no-op: no mutation, no activity record.
func (h *UserHandler) AddFavorite(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	quoteID, ok := parseQuoteIDParam(c)
	if !ok {
		return
	}
	exists, errExists := h.quoteExists(c, quoteID)
	if errExists != nil {
		apperr.Write(c, errExists)
		return
	}
	if !exists {
		apperr.Write(c, apperr.NotFound("quote"))
		return
	}

	if user.Favorites.Contains(quoteID) {
		c.JSON(http.StatusOK, gin.H{
			"message":         "already in favorites",
			"changed":         false,
			"favorites_count": len(user.Favorites),
		})
		return
	}

	user.Favorites = append(user.Favorites, quoteID)
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", user.ID).Update("favorites", user.Favorites).Error; errUpdate != nil {
		apperr.Write(c, errUpdate)
		return
	}
	h.recorder.Record(c.Request.Context(), user.ID, models.ActionFavoriteAdded,
		map[string]any{"quote_id": quoteID}, c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusOK, gin.H{
		"message":         "added to favorites",
		"changed":         true,
		"favorites_count": len(user.Favorites),
	})
}

// RemoveFavorite drops a quote from the favorites list. Removing an absent
// entry is a no-op: no mutation, no activity record.
func (h *UserHandler) RemoveFavorite(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	quoteID, ok := parseQuoteIDParam(c)
	if !ok {
		return
	}

	if !user.Favorites.Contains(quoteID) {
		c.JSON(http.StatusOK, gin.H{
			"message":         "not in favorites",
			"changed":         false,
			"favorites_count": len(user.Favorites),
		})
		return
	}

	user.Favorites = user.Favorites.Without(quoteID)
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", user.ID).Update("favorites", user.Favorites).Error; errUpdate != nil {
		apperr.Write(c, errUpdate)
		return
	}
	h.recorder.Record(c.Request.Context(), user.ID, models.ActionFavoriteRemoved,
		map[string]any{"quote_id": quoteID}, c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusOK, gin.H{
		"message":         "removed from favorites",
		"changed":         true,
		"favorites_count": len(user.Favorites),
	})
}

// RecordHistory notes a quote view in the user's bounded recent-view history.
func (h *UserHandler) RecordHistory(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	quoteID, ok := parseQuoteIDParam(c)
	if !ok {
		return
	}
	exists, errExists := h.quoteExists(c, quoteID)
	if errExists != nil {
		apperr.Write(c, errExists)
		return
	}
	if !exists {
		apperr.Write(c, apperr.NotFound("quote"))
		return
	}

	user.RecordView(quoteID)
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", user.ID).Update("quotes_viewed", user.QuotesViewed).Error; errUpdate != nil {
		apperr.Write(c, errUpdate)
		return
	}
	h.recorder.Record(c.Request.Context(), user.ID, models.ActionQuoteViewed,
		map[string]any{"quote_id": quoteID}, c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusOK, gin.H{"history_count": len(user.QuotesViewed)})
}

// History returns the user's recently viewed quotes, most recent first.
func (h *UserHandler) History(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	out, errResolve := h.resolveQuotes(c, user.QuotesViewed)
	if errResolve != nil {
		apperr.Write(c, errResolve)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": out, "total": len(out)})
}

// Activity returns the user's own activity records, newest first.
func (h *UserHandler) Activity(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	offset, limit := parsePage(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.ActivityRecord{}).
		Where("user_id = ?", user.ID)

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		apperr.Write(c, errCount)
		return
	}
	var rows []models.ActivityRecord
	if errFind := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).
		Find(&rows).Error; errFind != nil {
		apperr.Write(c, errFind)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, activityJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"activity": out, "total": total, "offset": offset, "limit": limit})
}
