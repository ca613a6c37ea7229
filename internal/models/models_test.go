package models

import (
	"testing"
)

func TestQuoteIDsContainsAndWithout(t *testing.T) {
	ids := QuoteIDs{1, 2, 3}
	if !ids.Contains(2) {
		t.Fatal("expected Contains(2) true")
	}
	if ids.Contains(9) {
		t.Fatal("expected Contains(9) false")
	}
	trimmed := ids.Without(2)
	if len(trimmed) != 2 || trimmed[0] != 1 || trimmed[1] != 3 {
		t.Fatalf("unexpected Without result: %v", trimmed)
	}
	if len(ids) != 3 {
		t.Fatal("Without must not mutate the receiver")
	}
}

func TestQuoteIDsScanRoundTrip(t *testing.T) {
	original := QuoteIDs{5, 6}
	value, errValue := original.Value()
	if errValue != nil {
		t.Fatalf("value: %v", errValue)
	}
	var restored QuoteIDs
	if errScan := restored.Scan(value); errScan != nil {
		t.Fatalf("scan: %v", errScan)
	}
	if len(restored) != 2 || restored[0] != 5 || restored[1] != 6 {
		t.Fatalf("unexpected round trip: %v", restored)
	}
}

func TestQuoteIDsScanNilYieldsEmpty(t *testing.T) {
	var ids QuoteIDs
	if errScan := ids.Scan(nil); errScan != nil {
		t.Fatalf("scan nil: %v", errScan)
	}
	if ids == nil || len(ids) != 0 {
		t.Fatalf("expected empty list, got %v", ids)
	}
}

func TestRecordViewMovesRepeatToFront(t *testing.T) {
	user := User{QuotesViewed: QuoteIDs{3, 2, 1}}
	user.RecordView(1)
	if len(user.QuotesViewed) != 3 {
		t.Fatalf("expected length unchanged, got %d", len(user.QuotesViewed))
	}
	if user.QuotesViewed[0] != 1 || user.QuotesViewed[1] != 3 || user.QuotesViewed[2] != 2 {
		t.Fatalf("unexpected order: %v", user.QuotesViewed)
	}
}

func TestRecordViewEvictsOldestPastCap(t *testing.T) {
	user := User{}
	for id := uint64(1); id <= MaxQuotesViewed+5; id++ {
		user.RecordView(id)
	}
	if len(user.QuotesViewed) != MaxQuotesViewed {
		t.Fatalf("expected cap %d, got %d", MaxQuotesViewed, len(user.QuotesViewed))
	}
	if user.QuotesViewed[0] != MaxQuotesViewed+5 {
		t.Fatalf("expected newest first, got %d", user.QuotesViewed[0])
	}
	if user.QuotesViewed.Contains(1) {
		t.Fatal("expected oldest entries evicted")
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleUser.Valid() || !RoleAdmin.Valid() {
		t.Fatal("expected known roles valid")
	}
	if Role("superuser").Valid() {
		t.Fatal("expected unknown role invalid")
	}
}

func TestActivityActionValid(t *testing.T) {
	if !ActionFirstLogin.Valid() || !ActionQuotesImported.Valid() {
		t.Fatal("expected known actions valid")
	}
	if ActivityAction("bogus").Valid() {
		t.Fatal("expected unknown action invalid")
	}
}
