package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityAction is the closed set of auditable action tags.
type ActivityAction string

// ActivityAction constants define the auditable actions.
const (
	// ActionFirstLogin marks the lazy creation of a user record.
	ActionFirstLogin ActivityAction = "first_login"
	// ActionLogin marks a verified request from a known user.
	ActionLogin ActivityAction = "login"
	// ActionLogout marks an explicit logout request.
	ActionLogout ActivityAction = "logout"
	// ActionQuoteViewed marks a quote read by an authenticated user.
	ActionQuoteViewed ActivityAction = "quote_viewed"
	// ActionFavoriteAdded marks a favorite list insertion.
	ActionFavoriteAdded ActivityAction = "favorite_added"
	// ActionFavoriteRemoved marks a favorite list removal.
	ActionFavoriteRemoved ActivityAction = "favorite_removed"
	// ActionProfileUpdated marks a preference merge.
	ActionProfileUpdated ActivityAction = "profile_updated"
	// ActionQuoteCreated marks an admin quote creation.
	ActionQuoteCreated ActivityAction = "quote_created"
	// ActionQuoteUpdated marks an admin quote update.
	ActionQuoteUpdated ActivityAction = "quote_updated"
	// ActionQuoteDeleted marks an admin quote deletion.
	ActionQuoteDeleted ActivityAction = "quote_deleted"
	// ActionUserDeleted marks an admin user deletion.
	ActionUserDeleted ActivityAction = "user_deleted"
	// ActionQuotesImported marks an admin bulk import.
	ActionQuotesImported ActivityAction = "quotes_imported"
)

// Valid reports whether the action is one of the known tags.
func (a ActivityAction) Valid() bool {
	switch a {
	case ActionFirstLogin, ActionLogin, ActionLogout,
		ActionQuoteViewed, ActionFavoriteAdded, ActionFavoriteRemoved,
		ActionProfileUpdated, ActionQuoteCreated, ActionQuoteUpdated,
		ActionQuoteDeleted, ActionUserDeleted, ActionQuotesImported:
		return true
	}
	return false
}

// ActivityRecord is an append-only audit entry. No update or delete path
// exists for these rows.
type ActivityRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64         `gorm:"not null;index"`     // Acting user ID.
	Action ActivityAction `gorm:"type:text;not null"` // Action tag.

	Details datatypes.JSON `gorm:"type:jsonb"` // Free-form detail bag.

	IP        string `gorm:"type:text"` // Captured client IP.
	UserAgent string `gorm:"type:text"` // Captured user agent.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp, immutable.
}
