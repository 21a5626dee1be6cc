package tracking

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type MealLogRepo interface {
	Create(dbc dbctx.Context, m *types.MealLog) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MealLog, error)
	ListByUserDateRange(dbc dbctx.Context, userID uuid.UUID, startDate, endDate string) ([]*types.MealLog, error)
	TagMatched(dbc dbctx.Context, id uuid.UUID, planItemID uuid.UUID) (bool, error)
}

type mealLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMealLogRepo(db *gorm.DB, baseLog *logger.Logger) MealLogRepo {
	return &mealLogRepo{
		db:  db,
		log: baseLog.With("repo", "MealLogRepo"),
	}
}

func (r *mealLogRepo) Create(dbc dbctx.Context, m *types.MealLog) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(m).Error
}

func (r *mealLogRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MealLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var m types.MealLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	return &m, nil
}

func (r *mealLogRepo) ListByUserDateRange(dbc dbctx.Context, userID uuid.UUID, startDate, endDate string) ([]*types.MealLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MealLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND log_date >= ? AND log_date <= ?", userID, startDate, endDate).
		Order("eaten_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mealLogRepo) TagMatched(dbc dbctx.Context, id uuid.UUID, planItemID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.MealLog{}).
		Where("id = ? AND matched_plan_item_id IS NULL", id).
		Update("matched_plan_item_id", planItemID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
