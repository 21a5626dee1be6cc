package adjustment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/planadapt-backend/internal/data/aggregates"
	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type DayOverrideRepo interface {
	Create(dbc dbctx.Context, o *types.DayOverride) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DayOverride, error)
	GetPendingForDate(dbc dbctx.Context, userID uuid.UUID, date string) (*types.DayOverride, error)
	ExistsForDate(dbc dbctx.Context, userID uuid.UUID, date string) (bool, error)
	ListByUserDateRange(dbc dbctx.Context, userID uuid.UUID, startDate, endDate string) ([]*types.DayOverride, error)
	ListGraceExpired(dbc dbctx.Context, now time.Time, limit int) ([]*types.DayOverride, error)
	UpdateByStatus(dbc dbctx.Context, id uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error)
}

type dayOverrideRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	guard aggregates.CASGuard
}

func NewDayOverrideRepo(db *gorm.DB, baseLog *logger.Logger) DayOverrideRepo {
	return &dayOverrideRepo{
		db:    db,
		log:   baseLog.With("repo", "DayOverrideRepo"),
		guard: aggregates.NewCASGuard(db),
	}
}

// Create inserts o. A second pending row for the same user and date violates
// idx_day_override_one_pending and is returned as ErrDuplicateOverride.
func (r *dayOverrideRepo) Create(dbc dbctx.Context, o *types.DayOverride) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(dbc.Ctx).Create(o).Error
	if aggregates.IsDuplicate(err) {
		return fmt.Errorf("user %s date %s: %w", o.UserID, o.OverrideDate, adjustment.ErrDuplicateOverride)
	}
	return err
}

func (r *dayOverrideRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DayOverride, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var o types.DayOverride
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&o).Error; err != nil {
		return nil, err
	}
	if o.ID == uuid.Nil {
		return nil, nil
	}
	return &o, nil
}

func (r *dayOverrideRepo) GetPendingForDate(dbc dbctx.Context, userID uuid.UUID, date string) (*types.DayOverride, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var o types.DayOverride
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND override_date = ? AND status = ?", userID, date, adjustment.StatusPending).
		Limit(1).
		Find(&o).Error; err != nil {
		return nil, err
	}
	if o.ID == uuid.Nil {
		return nil, nil
	}
	return &o, nil
}

// ExistsForDate reports whether any override, in any status, exists for date.
func (r *dayOverrideRepo) ExistsForDate(dbc dbctx.Context, userID uuid.UUID, date string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.DayOverride{}).
		Where("user_id = ? AND override_date = ?", userID, date).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *dayOverrideRepo) ListByUserDateRange(dbc dbctx.Context, userID uuid.UUID, startDate, endDate string) ([]*types.DayOverride, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.DayOverride
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND override_date >= ? AND override_date <= ?", userID, startDate, endDate).
		Order("override_date ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListGraceExpired returns pending overrides whose grace period ended at or before now.
func (r *dayOverrideRepo) ListGraceExpired(dbc dbctx.Context, now time.Time, limit int) ([]*types.DayOverride, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	var out []*types.DayOverride
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND grace_period_expires_at IS NOT NULL AND grace_period_expires_at <= ?", adjustment.StatusPending, now.UTC()).
		Order("grace_period_expires_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dayOverrideRepo) UpdateByStatus(dbc dbctx.Context, id uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error) {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.guard.UpdateByStatus(dbc, types.DayOverride{}.TableName(), id, allowedStatuses, updates)
}
