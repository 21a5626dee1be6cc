package plan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/plan"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type ProgramRepo interface {
	Create(dbc dbctx.Context, p *types.Program) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Program, error)
	GetActive(dbc dbctx.Context, userID uuid.UUID) (*types.Program, error)
	ListActiveUserIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	ListDueForReassessment(dbc dbctx.Context, today string) ([]*types.Program, error)
	ArchiveActive(dbc dbctx.Context, userID uuid.UUID, now time.Time) (int64, error)
	UpdateByVersion(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error)
}

type programRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgramRepo(db *gorm.DB, baseLog *logger.Logger) ProgramRepo {
	return &programRepo{
		db:  db,
		log: baseLog.With("repo", "ProgramRepo"),
	}
}

func (r *programRepo) Create(dbc dbctx.Context, p *types.Program) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(p).Error
}

func (r *programRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Program, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.Program
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

// GetActive returns nil, nil when the user has no active program.
func (r *programRepo) GetActive(dbc dbctx.Context, userID uuid.UUID) (*types.Program, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.Program
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND status = ?", userID, plan.ProgramStatusActive).
		Order("created_at DESC").
		Limit(1).
		Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *programRepo) ListActiveUserIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Program{}).
		Where("status = ?", plan.ProgramStatusActive).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *programRepo) ListDueForReassessment(dbc dbctx.Context, today string) ([]*types.Program, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Program
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND next_reassessment_date <> '' AND next_reassessment_date <= ?", plan.ProgramStatusActive, today).
		Order("next_reassessment_date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *programRepo) ArchiveActive(dbc dbctx.Context, userID uuid.UUID, now time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Program{}).
		Where("user_id = ? AND status = ?", userID, plan.ProgramStatusActive).
		Updates(map[string]interface{}{
			"status":     plan.ProgramStatusArchived,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// UpdateByVersion applies updates only if the stored version still matches.
func (r *programRepo) UpdateByVersion(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Program{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
