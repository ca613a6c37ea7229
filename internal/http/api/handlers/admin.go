package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motivohq/motivo-server/internal/activity"
	"github.com/motivohq/motivo-server/internal/apperr"
	dbutil "github.com/motivohq/motivo-server/internal/db"
	"github.com/motivohq/motivo-server/internal/http/middleware"
	"github.com/motivohq/motivo-server/internal/models"
	"gorm.io/gorm"
)

// importBatchLimit caps a single import request.
const importBatchLimit = 1000

// AdminHandler serves user management, platform stats, the activity audit
// view, and bulk quote import/export. All routes sit behind the admin role
// gate.
type AdminHandler struct {
	db       *gorm.DB
	recorder *activity.Recorder
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(db *gorm.DB, recorder *activity.Recorder) *AdminHandler {
	return &AdminHandler{db: db, recorder: recorder}
}

// ListUsers returns paginated users, optionally filtered by an email or
// display-name substring.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	offset, limit := parsePage(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+search+"%")
		q = q.Where(
			h.db.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), pattern).
				Or(dbutil.CaseInsensitiveLikeExpr(h.db, "display_name"), pattern),
		)
	}
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		q = q.Where("role = ?", role)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		apperr.Write(c, errCount)
		return
	}
	var rows []models.User
	if errFind := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; errFind != nil {
		apperr.Write(c, errFind)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, userJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "total": total, "offset": offset, "limit": limit})
}

// GetUser returns a user by ID.
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		apperr.Write(c, apperr.Validation("invalid id"))
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			apperr.Write(c, apperr.NotFound("user"))
			return
		}
		apperr.Write(c, errFind)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(&user)})
}

// updateUserRequest defines the request body for admin user updates.
type updateUserRequest struct {
	Role        *string `json:"role"`
	DisplayName *string `json:"display_name"`
}

// UpdateUser modifies a user's role or display name.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		apperr.Write(c, apperr.Validation("invalid id"))
		return
	}
	var body updateUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apperr.Write(c, apperr.Validation("invalid json"))
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Role != nil {
		role := models.Role(strings.TrimSpace(*body.Role))
		if !role.Valid() {
			apperr.Write(c, apperr.Validation("invalid role"))
			return
		}
		updates["role"] = role
	}
	if body.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*body.DisplayName)
	}
	if len(updates) == 1 {
		apperr.Write(c, apperr.Validation("no fields to update"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		apperr.Write(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		apperr.Write(c, apperr.NotFound("user"))
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		apperr.Write(c, errFind)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(&user)})
}

// DeleteUser removes a user and their activity records in one transaction.
// Admins cannot delete their own account.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		apperr.Write(c, apperr.AuthRequired("authentication required"))
		return
	}
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		apperr.Write(c, apperr.Validation("invalid id"))
		return
	}
	if id == admin.ID {
		apperr.Write(c, apperr.Validation("cannot delete own account"))
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("user_id = ?", id).Delete(&models.ActivityRecord{}).Error
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			apperr.Write(c, apperr.NotFound("user"))
			return
		}
		apperr.Write(c, errTx)
		return
	}

	h.recorder.Record(c.Request.Context(), admin.ID, models.ActionUserDeleted,
		map[string]any{"deleted_user_id": id}, c.ClientIP(), c.Request.UserAgent())
	c.Status(http.StatusNoContent)
}

// Stats returns platform-wide counters and the most viewed quotes.
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	var userCount, quoteCount, activityCount int64
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error; errCount != nil {
		apperr.Write(c, errCount)
		return
	}
	if errCount := h.db.WithContext(ctx).Model(&models.Quote{}).Count(&quoteCount).Error; errCount != nil {
		apperr.Write(c, errCount)
		return
	}
	if errCount := h.db.WithContext(ctx).Model(&models.ActivityRecord{}).Count(&activityCount).Error; errCount != nil {
		apperr.Write(c, errCount)
		return
	}

	var totalViews int64
	if errSum := h.db.WithContext(ctx).Model(&models.Quote{}).
		Select("COALESCE(SUM(views), 0)").Scan(&totalViews).Error; errSum != nil {
		apperr.Write(c, errSum)
		return
	}

	var topQuotes []models.Quote
	if errFind := h.db.WithContext(ctx).Order("views DESC").Limit(5).Find(&topQuotes).Error; errFind != nil {
		apperr.Write(c, errFind)
		return
	}
	top := make([]gin.H, 0, len(topQuotes))
	for i := range topQuotes {
		top = append(top, quoteJSON(&topQuotes[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"users":       userCount,
		"quotes":      quoteCount,
		"activity":    activityCount,
		"total_views": totalViews,
		"top_quotes":  top,
	})
}

// Activity returns the audit log, paginated, filtered by user, action, and an
// inclusive timestamp range.
func (h *AdminHandler) Activity(c *gin.Context) {
	offset, limit := parsePage(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.ActivityRecord{})
	if rawUser := strings.TrimSpace(c.Query("user_id")); rawUser != "" {
		userID, errParse := strconv.ParseUint(rawUser, 10, 64)
		if errParse != nil {
			apperr.Write(c, apperr.Validation("invalid user_id"))
			return
		}
		q = q.Where("user_id = ?", userID)
	}
	if rawAction := strings.TrimSpace(c.Query("action")); rawAction != "" {
		action := models.ActivityAction(rawAction)
		if !action.Valid() {
			apperr.Write(c, apperr.Validation("invalid action"))
			return
		}
		q = q.Where("action = ?", action)
	}
	if rawFrom := strings.TrimSpace(c.Query("from")); rawFrom != "" {
		from, errParse := time.Parse(time.RFC3339, rawFrom)
		if errParse != nil {
			apperr.Write(c, apperr.Validation("invalid from timestamp"))
			return
		}
		q = q.Where("created_at >= ?", from)
	}
	if rawTo := strings.TrimSpace(c.Query("to")); rawTo != "" {
		to, errParse := time.Parse(time.RFC3339, rawTo)
		if errParse != nil {
			apperr.Write(c, apperr.Validation("invalid to timestamp"))
			return
		}
		q = q.Where("created_at <= ?", to)
	}

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

// ExportQuotes returns every quote as a JSON array.
func (h *AdminHandler) ExportQuotes(c *gin.Context) {
	var rows []models.Quote
	if errFind := h.db.WithContext(c.Request.Context()).Order("id").Find(&rows).Error; errFind != nil {
		apperr.Write(c, errFind)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, quoteJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, out)
}

// importQuoteItem is one element of the import payload.
type importQuoteItem struct {
	Text   string   `json:"text"`
	Author string   `json:"author"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}

// ImportQuotes bulk-inserts quotes from a JSON array. Items failing
// validation are reported per index; duplicate (text, author) pairs, within
// the batch or against stored quotes, are skipped.
func (h *AdminHandler) ImportQuotes(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		apperr.Write(c, apperr.AuthRequired("authentication required"))
		return
	}
	var items []importQuoteItem
	if errBind := c.ShouldBindJSON(&items); errBind != nil {
		apperr.Write(c, apperr.Validation("expected a json array of quotes"))
		return
	}
	if len(items) == 0 {
		apperr.Write(c, apperr.Validation("empty import"))
		return
	}
	if len(items) > importBatchLimit {
		apperr.Write(c, apperr.Validation(fmt.Sprintf("import exceeds %d items", importBatchLimit)))
		return
	}

	seen := make(map[string]struct{}, len(items))
	imported := 0
	skipped := 0
	importErrors := []gin.H{}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for index, item := range items {
			text := strings.TrimSpace(item.Text)
			author := strings.TrimSpace(item.Author)
			source := strings.TrimSpace(item.Source)
			if errValidate := validateQuoteFields(text, author, source); errValidate != nil {
				importErrors = append(importErrors, gin.H{"index": index, "reason": errValidate.Error()})
				continue
			}

			pairKey := strings.ToLower(text) + "\x00" + strings.ToLower(author)
			if _, dup := seen[pairKey]; dup {
				skipped++
				continue
			}
			seen[pairKey] = struct{}{}

			var existing int64
			errCount := tx.Model(&models.Quote{}).
				Where("LOWER(text) = ? AND LOWER(author) = ?", strings.ToLower(text), strings.ToLower(author)).
				Count(&existing).Error
			if errCount != nil {
				return errCount
			}
			if existing > 0 {
				skipped++
				continue
			}

			quote := models.Quote{
				Text:   text,
				Author: author,
				Source: source,
				Tags:   marshalTags(normalizeTags(item.Tags)),
				Views:  0,
			}
			if errCreate := tx.Create(&quote).Error; errCreate != nil {
				return errCreate
			}
			imported++
		}
		return nil
	})
	if errTx != nil {
		apperr.Write(c, errTx)
		return
	}

	h.recorder.Record(c.Request.Context(), admin.ID, models.ActionQuotesImported,
		map[string]any{"imported": imported, "skipped": skipped}, c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"skipped":  skipped,
		"errors":   importErrors,
	})
}
