package activity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/motivohq/motivo-server/internal/db"
	"github.com/motivohq/motivo-server/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "activity-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestRecorderAppendsRecord(t *testing.T) {
	conn := openTestDB(t)
	recorder := NewRecorder(conn)

	recorder.Record(context.Background(), 7, models.ActionLogin, map[string]any{"first": false}, "10.0.0.1", "test-agent")

	var records []models.ActivityRecord
	if errFind := conn.Find(&records).Error; errFind != nil {
		t.Fatalf("find records: %v", errFind)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].UserID != 7 || records[0].Action != models.ActionLogin {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if records[0].IP != "10.0.0.1" || records[0].UserAgent != "test-agent" {
		t.Fatalf("expected captured ip/agent, got %+v", records[0])
	}
}

func TestRecorderDropsUnknownAction(t *testing.T) {
	conn := openTestDB(t)
	recorder := NewRecorder(conn)

	recorder.Record(context.Background(), 7, models.ActivityAction("bogus"), nil, "", "")

	var count int64
	if errCount := conn.Model(&models.ActivityRecord{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no records, got %d", count)
	}
}

func TestRecorderNilDetailsStoresEmptyBag(t *testing.T) {
	conn := openTestDB(t)
	recorder := NewRecorder(conn)

	recorder.Record(context.Background(), 3, models.ActionLogout, nil, "", "")

	var record models.ActivityRecord
	if errFind := conn.First(&record).Error; errFind != nil {
		t.Fatalf("find record: %v", errFind)
	}
	if string(record.Details) != "{}" {
		t.Fatalf("expected empty detail bag, got %s", record.Details)
	}
}
