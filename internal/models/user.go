package models

import (
	"time"

	"gorm.io/datatypes"
)

// Role is the closed set of access levels a user can hold.
type Role string

// Role constants define the supported access levels.
const (
	// RoleUser is the default, lowest-privilege role.
	RoleUser Role = "user"
	// RoleAdmin grants access to management endpoints.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// MaxQuotesViewed caps the per-user recent-view history.
const MaxQuotesViewed = 100

// User represents a locally mirrored account for an external identity.
// Records are created lazily on the first verified request and never any
// other way.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SubjectID   string `gorm:"type:text;not null;uniqueIndex"` // Identity provider subject, immutable.
	Email       string `gorm:"type:text;uniqueIndex"`          // Email address, lowercased.
	DisplayName string `gorm:"type:text"`                      // Display name from token claims.

	Role Role `gorm:"type:text;not null;default:user"` // Access level.

	Preferences  datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Preference bag (theme, notification flags).
	Favorites    QuoteIDs       `gorm:"type:jsonb;not null;default:'[]'"` // Favorite quote IDs, insertion order.
	QuotesViewed QuoteIDs       `gorm:"type:jsonb;not null;default:'[]'"` // Recent views, most recent first, capped.

	LastLogin *time.Time `gorm:"type:timestamptz"` // Last verified request timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// RecordView prepends a quote ID to the view history, evicting the oldest
// entry past the cap. Re-views move the ID back to the front.
func (u *User) RecordView(quoteID uint64) {
	history := make(QuoteIDs, 0, len(u.QuotesViewed)+1)
	history = append(history, quoteID)
	for _, id := range u.QuotesViewed {
		if id != quoteID {
			history = append(history, id)
		}
	}
	if len(history) > MaxQuotesViewed {
		history = history[:MaxQuotesViewed]
	}
	u.QuotesViewed = history
}
