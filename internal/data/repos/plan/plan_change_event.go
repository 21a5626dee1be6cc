package plan

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type PlanChangeEventRepo interface {
	Create(dbc dbctx.Context, e *types.PlanChangeEvent) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.PlanChangeEvent, error)
}

type planChangeEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanChangeEventRepo(db *gorm.DB, baseLog *logger.Logger) PlanChangeEventRepo {
	return &planChangeEventRepo{
		db:  db,
		log: baseLog.With("repo", "PlanChangeEventRepo"),
	}
}

func (r *planChangeEventRepo) Create(dbc dbctx.Context, e *types.PlanChangeEvent) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(e).Error
}

// ListByUser returns the newest events first.
func (r *planChangeEventRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.PlanChangeEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var out []*types.PlanChangeEvent
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, to_version DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
