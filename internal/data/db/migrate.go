package db

import (
	"fmt"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureConstraints installs Postgres-only guards that AutoMigrate cannot express.
func EnsureConstraints(db *gorm.DB) error {
	if !IsPostgres(db) {
		return nil
	}
	stmts := []struct {
		name string
		sql  string
	}{
		{
			name: "chk_user_coins_non_negative",
			sql: `DO $$ BEGIN
				ALTER TABLE "user" ADD CONSTRAINT chk_user_coins_non_negative CHECK (coins >= 0);
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		},
		{
			name: "chk_coin_transaction_amount_positive",
			sql: `DO $$ BEGIN
				ALTER TABLE coin_transaction ADD CONSTRAINT chk_coin_transaction_amount_positive CHECK (amount > 0);
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		},
		{
			name: "chk_session_status",
			sql: `DO $$ BEGIN
				ALTER TABLE session ADD CONSTRAINT chk_session_status CHECK (status IN ('PENDING','IN_PROGRESS','COMPLETED'));
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		},
		{
			name: "idx_activity_log_target_created",
			sql: `CREATE INDEX IF NOT EXISTS idx_activity_log_target_created
				ON activity_log (target_resource_id, created_at DESC);`,
		},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureConstraints(s.db); err != nil {
		s.log.Error("Constraint migration failed", "error", err)
		return err
	}
	return nil
}
