package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type BodyMetricRepo interface {
	Create(dbc dbctx.Context, m *types.BodyMetric) error
	ListByUserRange(dbc dbctx.Context, userID uuid.UUID, from, to time.Time) ([]*types.BodyMetric, error)
}

type bodyMetricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBodyMetricRepo(db *gorm.DB, baseLog *logger.Logger) BodyMetricRepo {
	return &bodyMetricRepo{
		db:  db,
		log: baseLog.With("repo", "BodyMetricRepo"),
	}
}

func (r *bodyMetricRepo) Create(dbc dbctx.Context, m *types.BodyMetric) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	m.MeasuredAt = m.MeasuredAt.UTC()
	return transaction.WithContext(dbc.Ctx).Create(m).Error
}

// ListByUserRange returns samples with from <= measured_at < to, oldest first.
func (r *bodyMetricRepo) ListByUserRange(dbc dbctx.Context, userID uuid.UUID, from, to time.Time) ([]*types.BodyMetric, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BodyMetric
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND measured_at >= ? AND measured_at < ?", userID, from.UTC(), to.UTC()).
		Order("measured_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
