package models

import (
	"time"

	"gorm.io/datatypes"
)

// Field length limits enforced at validation time.
const (
	// MaxQuoteTextLen bounds the quote text.
	MaxQuoteTextLen = 500
	// MaxQuoteAuthorLen bounds the author name.
	MaxQuoteAuthorLen = 100
	// MaxQuoteSourceLen bounds the optional source.
	MaxQuoteSourceLen = 200
)

// Quote represents a single motivational quote document.
type Quote struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Text   string `gorm:"type:text;not null"` // Quote text, mandatory.
	Author string `gorm:"type:text;not null"` // Author name, mandatory.
	Source string `gorm:"type:text"`          // Optional source attribution.

	Tags datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Lowercased tag list.

	Views uint64 `gorm:"not null;default:0"` // Monotonic view counter.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
