package adjustment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type FeedbackRepo interface {
	Create(dbc dbctx.Context, f *types.AdjustmentFeedback) error
	ListByOverride(dbc dbctx.Context, overrideID uuid.UUID) ([]*types.AdjustmentFeedback, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{
		db:  db,
		log: baseLog.With("repo", "FeedbackRepo"),
	}
}

func (r *feedbackRepo) Create(dbc dbctx.Context, f *types.AdjustmentFeedback) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(f).Error
}

func (r *feedbackRepo) ListByOverride(dbc dbctx.Context, overrideID uuid.UUID) ([]*types.AdjustmentFeedback, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AdjustmentFeedback
	if err := transaction.WithContext(dbc.Ctx).
		Where("override_id = ?", overrideID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
