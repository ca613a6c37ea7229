package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// QuoteIDs stores quote identifiers as a JSON array column.
type QuoteIDs []uint64

// Value implements driver.Valuer for database serialization.
func (ids QuoteIDs) Value() (driver.Value, error) {
	if ids == nil {
		ids = QuoteIDs{}
	}
	data, errMarshal := json.Marshal([]uint64(ids))
	if errMarshal != nil {
		return nil, fmt.Errorf("quote ids marshal: %w", errMarshal)
	}
	return data, nil
}

// Scan implements sql.Scanner for database deserialization.
func (ids *QuoteIDs) Scan(value any) error {
	if ids == nil {
		return fmt.Errorf("quote ids scan: nil receiver")
	}
	if value == nil {
		*ids = QuoteIDs{}
		return nil
	}
	switch typed := value.(type) {
	case []byte:
		return parseQuoteIDs(ids, typed)
	case string:
		return parseQuoteIDs(ids, []byte(typed))
	default:
		return fmt.Errorf("quote ids scan: unsupported type %T", value)
	}
}

// Contains reports whether the list holds the given ID.
func (ids QuoteIDs) Contains(id uint64) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Without returns a copy of the list with the given ID removed.
func (ids QuoteIDs) Without(id uint64) QuoteIDs {
	out := make(QuoteIDs, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func parseQuoteIDs(ids *QuoteIDs, data []byte) error {
	if len(data) == 0 {
		*ids = QuoteIDs{}
		return nil
	}
	var values []uint64
	if errUnmarshal := json.Unmarshal(data, &values); errUnmarshal != nil {
		return fmt.Errorf("quote ids scan: %w", errUnmarshal)
	}
	if values == nil {
		values = []uint64{}
	}
	*ids = QuoteIDs(values)
	return nil
}
