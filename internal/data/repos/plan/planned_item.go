package plan

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type PlannedItemRepo interface {
	CreateSessions(dbc dbctx.Context, sessions []*types.PlannedSession) error
	CreateMeals(dbc dbctx.Context, meals []*types.PlannedMeal) error
	ListSessions(dbc dbctx.Context, programID uuid.UUID) ([]*types.PlannedSession, error)
	ListMeals(dbc dbctx.Context, programID uuid.UUID) ([]*types.PlannedMeal, error)
	ListSessionsByDay(dbc dbctx.Context, programID uuid.UUID, dayIndex int) ([]*types.PlannedSession, error)
	ListMealsByDay(dbc dbctx.Context, programID uuid.UUID, dayIndex int) ([]*types.PlannedMeal, error)
}

type plannedItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlannedItemRepo(db *gorm.DB, baseLog *logger.Logger) PlannedItemRepo {
	return &plannedItemRepo{
		db:  db,
		log: baseLog.With("repo", "PlannedItemRepo"),
	}
}

func (r *plannedItemRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *plannedItemRepo) CreateSessions(dbc dbctx.Context, sessions []*types.PlannedSession) error {
	if len(sessions) == 0 {
		return nil
	}
	return r.tx(dbc).Create(&sessions).Error
}

func (r *plannedItemRepo) CreateMeals(dbc dbctx.Context, meals []*types.PlannedMeal) error {
	if len(meals) == 0 {
		return nil
	}
	return r.tx(dbc).Create(&meals).Error
}

func (r *plannedItemRepo) ListSessions(dbc dbctx.Context, programID uuid.UUID) ([]*types.PlannedSession, error) {
	var out []*types.PlannedSession
	if err := r.tx(dbc).
		Where("program_id = ?", programID).
		Order("day_index ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *plannedItemRepo) ListMeals(dbc dbctx.Context, programID uuid.UUID) ([]*types.PlannedMeal, error) {
	var out []*types.PlannedMeal
	if err := r.tx(dbc).
		Where("program_id = ?", programID).
		Order("day_index ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *plannedItemRepo) ListSessionsByDay(dbc dbctx.Context, programID uuid.UUID, dayIndex int) ([]*types.PlannedSession, error) {
	var out []*types.PlannedSession
	if err := r.tx(dbc).
		Where("program_id = ? AND day_index = ?", programID, dayIndex).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *plannedItemRepo) ListMealsByDay(dbc dbctx.Context, programID uuid.UUID, dayIndex int) ([]*types.PlannedMeal, error) {
	var out []*types.PlannedMeal
	if err := r.tx(dbc).
		Where("program_id = ? AND day_index = ?", programID, dayIndex).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
