package tracking

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type ActivityLogRepo interface {
	Create(dbc dbctx.Context, a *types.ActivityLog) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityLog, error)
	ListByUserDateRange(dbc dbctx.Context, userID uuid.UUID, startDate, endDate string) ([]*types.ActivityLog, error)
	TagMatched(dbc dbctx.Context, id uuid.UUID, planItemID uuid.UUID) (bool, error)
}

type activityLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityLogRepo(db *gorm.DB, baseLog *logger.Logger) ActivityLogRepo {
	return &activityLogRepo{
		db:  db,
		log: baseLog.With("repo", "ActivityLogRepo"),
	}
}

func (r *activityLogRepo) Create(dbc dbctx.Context, a *types.ActivityLog) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(a).Error
}

func (r *activityLogRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var a types.ActivityLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&a).Error; err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

// ListByUserDateRange is inclusive on both ends.
func (r *activityLogRepo) ListByUserDateRange(dbc dbctx.Context, userID uuid.UUID, startDate, endDate string) ([]*types.ActivityLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ActivityLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND log_date >= ? AND log_date <= ?", userID, startDate, endDate).
		Order("performed_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// TagMatched sets matched_plan_item_id once. It reports false when the log was
// already tagged.
func (r *activityLogRepo) TagMatched(dbc dbctx.Context, id uuid.UUID, planItemID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityLog{}).
		Where("id = ? AND matched_plan_item_id IS NULL", id).
		Update("matched_plan_item_id", planItemID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
