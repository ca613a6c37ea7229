package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/motivohq/motivo-server/internal/activity"
	"github.com/motivohq/motivo-server/internal/apperr"
	dbutil "github.com/motivohq/motivo-server/internal/db"
	"github.com/motivohq/motivo-server/internal/http/middleware"
	"github.com/motivohq/motivo-server/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuoteHandler serves quote retrieval and admin quote management.
type QuoteHandler struct {
	db       *gorm.DB
	recorder *activity.Recorder
}

// NewQuoteHandler constructs a QuoteHandler.
func NewQuoteHandler(db *gorm.DB, recorder *activity.Recorder) *QuoteHandler {
	return &QuoteHandler{db: db, recorder: recorder}
}

// normalizeTags lowercases, trims, and dedupes a tag list preserving order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		cleaned = append(cleaned, normalized)
	}
	return cleaned
}

func marshalTags(tags []string) datatypes.JSON {
	payload, _ := json.Marshal(tags)
	return datatypes.JSON(payload)
}

// validateQuoteFields checks mandatory fields and length bounds.
func validateQuoteFields(text, author, source string) error {
	if text == "" {
		return apperr.Validation("missing text")
	}
	if len(text) > models.MaxQuoteTextLen {
		return apperr.Validation("text too long")
	}
	if author == "" {
		return apperr.Validation("missing author")
	}
	if len(author) > models.MaxQuoteAuthorLen {
		return apperr.Validation("author too long")
	}
	if len(source) > models.MaxQuoteSourceLen {
		return apperr.Validation("source too long")
	}
	return nil
}

// bumpViews increments the view counter by exactly one.
func (h *QuoteHandler) bumpViews(c *gin.Context, quote *models.Quote) error {
	errUpdate := h.db.WithContext(c.Request.Context()).Model(quote).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
	if errUpdate != nil {
		return errUpdate
	}
	quote.Views++
	return nil
}

// Random returns a uniformly random quote and increments its view count.
func (h *QuoteHandler) Random(c *gin.Context) {
	var quote models.Quote
	errFind := h.db.WithContext(c.Request.Context()).
		Order(dbutil.RandomOrderExpr(h.db)).First(&quote).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			apperr.Write(c, apperr.NotFound("quote"))
			return
		}
		apperr.Write(c, errFind)
		return
	}
	if errBump := h.bumpViews(c, &quote); errBump != nil {
		apperr.Write(c, errBump)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": quoteJSON(&quote)})
}

// Get returns a quote by ID and increments its view count.
func (h *QuoteHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		apperr.Write(c, apperr.Validation("invalid id"))
		return
	}
	var quote models.Quote
	if errFind := h.db.WithContext(c.Request.Context()).First(&quote, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			apperr.Write(c, apperr.NotFound("quote"))
			return
		}
		apperr.Write(c, errFind)
		return
	}
	if errBump := h.bumpViews(c, &quote); errBump != nil {
		apperr.Write(c, errBump)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": quoteJSON(&quote)})
}

// ByTag returns quotes carrying the given tag, paginated.
func (h *QuoteHandler) ByTag(c *gin.Context) {
	tag := strings.ToLower(strings.TrimSpace(c.Param("tag")))
	if tag == "" {
		apperr.Write(c, apperr.Validation("missing tag"))
		return
	}
	offset, limit := parsePage(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Quote{}).
		Where(dbutil.JSONArrayContainsExpr(h.db, "tags"), dbutil.JSONArrayContainsString(h.db, tag))

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		apperr.Write(c, errCount)
		return
	}
	var rows []models.Quote
	if errFind := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; errFind != nil {
		apperr.Write(c, errFind)
		return
	}
	h.writePage(c, rows, total, offset, limit)
}

// List returns paginated quotes, optionally filtered by a case-insensitive
// text/author substring search.
func (h *QuoteHandler) List(c *gin.Context) {
	offset, limit := parsePage(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Quote{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+search+"%")
		q = q.Where(
			h.db.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "text"), pattern).
				Or(dbutil.CaseInsensitiveLikeExpr(h.db, "author"), pattern),
		)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		apperr.Write(c, errCount)
		return
	}
	var rows []models.Quote
	if errFind := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; errFind != nil {
		apperr.Write(c, errFind)
		return
	}
	h.writePage(c, rows, total, offset, limit)
}

func (h *QuoteHandler) writePage(c *gin.Context, rows []models.Quote, total int64, offset, limit int) {
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, quoteJSON(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"quotes": out,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// createQuoteRequest defines the request body for quote creation.
type createQuoteRequest struct {
	Text   string   `json:"text"`
	Author string   `json:"author"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}

// Create inserts a new quote with a zero view count. Admin only.
func (h *QuoteHandler) Create(c *gin.Context) {
	var body createQuoteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apperr.Write(c, apperr.Validation("invalid json"))
		return
	}
	text := strings.TrimSpace(body.Text)
	author := strings.TrimSpace(body.Author)
	source := strings.TrimSpace(body.Source)
	if errValidate := validateQuoteFields(text, author, source); errValidate != nil {
		apperr.Write(c, errValidate)
		return
	}

	quote := models.Quote{
		Text:   text,
		Author: author,
		Source: source,
		Tags:   marshalTags(normalizeTags(body.Tags)),
		Views:  0,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&quote).Error; errCreate != nil {
		apperr.Write(c, errCreate)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		h.recorder.Record(c.Request.Context(), user.ID, models.ActionQuoteCreated,
			map[string]any{"quote_id": quote.ID}, c.ClientIP(), c.Request.UserAgent())
	}
	c.JSON(http.StatusCreated, gin.H{"quote": quoteJSON(&quote)})
}

// updateQuoteRequest defines the request body for partial quote updates.
type updateQuoteRequest struct {
	Text   *string   `json:"text"`
	Author *string   `json:"author"`
	Source *string   `json:"source"`
	Tags   *[]string `json:"tags"`
}

// Update applies a partial update: only supplied fields change. Admin only.
func (h *QuoteHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		apperr.Write(c, apperr.Validation("invalid id"))
		return
	}
	var body updateQuoteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apperr.Write(c, apperr.Validation("invalid json"))
		return
	}

	updates := map[string]any{}
	if body.Text != nil {
		text := strings.TrimSpace(*body.Text)
		if text == "" || len(text) > models.MaxQuoteTextLen {
			apperr.Write(c, apperr.Validation("invalid text"))
			return
		}
		updates["text"] = text
	}
	if body.Author != nil {
		author := strings.TrimSpace(*body.Author)
		if author == "" || len(author) > models.MaxQuoteAuthorLen {
			apperr.Write(c, apperr.Validation("invalid author"))
			return
		}
		updates["author"] = author
	}
	if body.Source != nil {
		source := strings.TrimSpace(*body.Source)
		if len(source) > models.MaxQuoteSourceLen {
			apperr.Write(c, apperr.Validation("invalid source"))
			return
		}
		updates["source"] = source
	}
	if body.Tags != nil {
		updates["tags"] = marshalTags(normalizeTags(*body.Tags))
	}
	if len(updates) == 0 {
		apperr.Write(c, apperr.Validation("no fields to update"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Quote{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		apperr.Write(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		apperr.Write(c, apperr.NotFound("quote"))
		return
	}

	var quote models.Quote
	if errFind := h.db.WithContext(c.Request.Context()).First(&quote, id).Error; errFind != nil {
		apperr.Write(c, errFind)
		return
	}
	if user, ok := middleware.CurrentUser(c); ok {
		h.recorder.Record(c.Request.Context(), user.ID, models.ActionQuoteUpdated,
			map[string]any{"quote_id": quote.ID}, c.ClientIP(), c.Request.UserAgent())
	}
	c.JSON(http.StatusOK, gin.H{"quote": quoteJSON(&quote)})
}

// Delete removes a quote. Favorites referencing the deleted ID are left in
// place and filtered out at read time. Admin only.
func (h *QuoteHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		apperr.Write(c, apperr.Validation("invalid id"))
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Quote{}, id)
	if res.Error != nil {
		apperr.Write(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		apperr.Write(c, apperr.NotFound("quote"))
		return
	}
	if user, ok := middleware.CurrentUser(c); ok {
		h.recorder.Record(c.Request.Context(), user.ID, models.ActionQuoteDeleted,
			map[string]any{"quote_id": id}, c.ClientIP(), c.Request.UserAgent())
	}
	c.Status(http.StatusNoContent)
}
