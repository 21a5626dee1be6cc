package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/planadapt-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureAdaptationIndexes creates the indexes gorm tags cannot express. The
// statements are valid on both Postgres and SQLite.
func EnsureAdaptationIndexes(db *gorm.DB) error {
	// At most one pending override per user and calendar date.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_day_override_one_pending
		ON day_override (user_id, override_date)
		WHERE status = 'pending';
	`).Error; err != nil {
		return fmt.Errorf("create idx_day_override_one_pending: %w", err)
	}

	// Grace-period sweep scans pending rows by expiry.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_day_override_pending_grace
		ON day_override (grace_period_expires_at)
		WHERE status = 'pending' AND grace_period_expires_at IS NOT NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_day_override_pending_grace: %w", err)
	}

	// Skipped-item sweep looks up records per planned item and date.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_adherence_planned_date
		ON adherence_record (planned_ref_id, record_date);
	`).Error; err != nil {
		return fmt.Errorf("create idx_adherence_planned_date: %w", err)
	}

	// One active program per user.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_program_one_active
		ON program (user_id)
		WHERE status = 'active' AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_program_one_active: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...", "driver", s.driver)
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureAdaptationIndexes(s.db); err != nil {
		s.log.Error("Adaptation index migration failed", "error", err)
		return err
	}
	return nil
}
