package tracking

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type ContextLogRepo interface {
	Create(dbc dbctx.Context, c *types.ContextLog) error
	GetLatest(dbc dbctx.Context, userID uuid.UUID, onOrBefore string) (*types.ContextLog, error)
	ListByUserDateRange(dbc dbctx.Context, userID uuid.UUID, startDate, endDate string) ([]*types.ContextLog, error)
}

type contextLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContextLogRepo(db *gorm.DB, baseLog *logger.Logger) ContextLogRepo {
	return &contextLogRepo{
		db:  db,
		log: baseLog.With("repo", "ContextLogRepo"),
	}
}

func (r *contextLogRepo) Create(dbc dbctx.Context, c *types.ContextLog) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	c.LoggedAt = c.LoggedAt.UTC()
	return transaction.WithContext(dbc.Ctx).Create(c).Error
}

// GetLatest returns the newest entry dated on or before onOrBefore, or nil.
func (r *contextLogRepo) GetLatest(dbc dbctx.Context, userID uuid.UUID, onOrBefore string) (*types.ContextLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.ContextLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND log_date <= ?", userID, onOrBefore).
		Order("log_date DESC, logged_at DESC").
		Limit(1).
		Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *contextLogRepo) ListByUserDateRange(dbc dbctx.Context, userID uuid.UUID, startDate, endDate string) ([]*types.ContextLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContextLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND log_date >= ? AND log_date <= ?", userID, startDate, endDate).
		Order("logged_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
