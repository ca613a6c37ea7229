package db

import (
	"fmt"

	"github.com/motivohq/motivo-server/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

func autoMigrate(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Quote{},
		&models.ActivityRecord{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}

// ddl defines an index or DDL statement to apply.
type ddl struct {
	name string // Human-readable name for error reporting.
	sql  string // SQL to execute.
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := autoMigrate(conn); errAutoMigrate != nil {
		return errAutoMigrate
	}

	_ = conn.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error

	ddls := []ddl{
		{
			name: "idx_activity_records_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_activity_records_user_id_created_at
				ON activity_records (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_activity_records_action_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_activity_records_action_created_at
				ON activity_records (action, created_at DESC)
			`,
		},
		{
			name: "idx_quotes_views",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_quotes_views
				ON quotes (views DESC)
			`,
		},
		{
			name: "idx_quotes_tags",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_quotes_tags
				ON quotes USING gin (tags)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	// trgmIndex defines trigram and fallback index statements.
	type trgmIndex struct {
		name     string // Logical index name.
		trgmSQL  string // Trigram index SQL.
		lowerSQL string // Lowercase fallback index SQL.
	}
	trgmIndexes := []trgmIndex{
		{
			name: "idx_quotes_text",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_quotes_text_trgm
				ON quotes USING gin (text gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_quotes_text_lower
				ON quotes (LOWER(text))
			`,
		},
		{
			name: "idx_quotes_author",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_quotes_author_trgm
				ON quotes USING gin (author gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_quotes_author_lower
				ON quotes (LOWER(author))
			`,
		},
		{
			name: "idx_users_email",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_users_email_trgm
				ON users USING gin (email gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_users_email_lower
				ON users (LOWER(email))
			`,
		},
	}
	for _, item := range trgmIndexes {
		if errIdx := conn.Exec(item.trgmSQL).Error; errIdx != nil {
			if errLower := conn.Exec(item.lowerSQL).Error; errLower != nil {
				return fmt.Errorf("db: create index %s: %w", item.name, errLower)
			}
		}
	}

	return nil
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := autoMigrate(conn); errAutoMigrate != nil {
		return errAutoMigrate
	}

	ddls := []ddl{
		{
			name: "idx_activity_records_user_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_activity_records_user_id_created_at
				ON activity_records (user_id, created_at DESC)
			`,
		},
		{
			name: "idx_activity_records_action_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_activity_records_action_created_at
				ON activity_records (action, created_at DESC)
			`,
		},
		{
			name: "idx_quotes_views",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_quotes_views
				ON quotes (views DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}
