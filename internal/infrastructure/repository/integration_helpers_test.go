package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mohammadpnp/member-import/internal/infrastructure/db/migrations"
)

func openIntegrationDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	if _, err := migrations.Up(context.Background(), sqlDB); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, dsn
}

func openIntegrationPool(t *testing.T, dsn string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to connect pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func seedReferences(t *testing.T, db *gorm.DB) {
	t.Helper()

	seedSQL := `
    INSERT INTO provinces (id, name) VALUES (9001, 'Integration Province') ON CONFLICT (id) DO NOTHING;
    INSERT INTO universities (id, name) VALUES (9001, 'Integration University') ON CONFLICT (id) DO NOTHING;
    INSERT INTO employment_statuses (id, name) VALUES (9001, 'Integration Status') ON CONFLICT (id) DO NOTHING;
    INSERT INTO study_programs (id, name) VALUES (9001, 'Integration Program') ON CONFLICT (id) DO NOTHING;
    INSERT INTO salary_ranges (id, name, min_amount, max_amount)
    VALUES (9001, 'Integration Low', 0, 999.99), (9002, 'Integration Open', 1000, NULL)
    ON CONFLICT (id) DO NOTHING;
    `
	if err := db.Exec(seedSQL).Error; err != nil {
		t.Fatalf("failed to seed references: %v", err)
	}
}

func cleanupBatch(t *testing.T, db *gorm.DB, batchID string) {
	t.Helper()

	t.Cleanup(func() {
		// Tokens cascade with their member; users go with the members that own them.
		statements := []string{
			`WITH gone AS (DELETE FROM members WHERE import_batch_id = ? RETURNING user_id)
			 DELETE FROM users WHERE id IN (SELECT user_id FROM gone)`,
			"DELETE FROM import_batch_errors WHERE batch_id = ?",
			"DELETE FROM import_batches WHERE id = ?",
		}
		for _, stmt := range statements {
			if err := db.Exec(stmt, batchID).Error; err != nil {
				t.Logf("cleanup failed: %v", err)
			}
		}
	})
}
