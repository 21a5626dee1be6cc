package adjustment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type PIDStateRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID, controller string) (*types.PIDState, error)
	Upsert(dbc dbctx.Context, s *types.PIDState) error
}

type pidStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPIDStateRepo(db *gorm.DB, baseLog *logger.Logger) PIDStateRepo {
	return &pidStateRepo{
		db:  db,
		log: baseLog.With("repo", "PIDStateRepo"),
	}
}

// Get returns nil, nil when the controller has never run for the user.
func (r *pidStateRepo) Get(dbc dbctx.Context, userID uuid.UUID, controller string) (*types.PIDState, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.PIDState
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND controller = ?", userID, controller).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *pidStateRepo) Upsert(dbc dbctx.Context, s *types.PIDState) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "controller"}},
			DoUpdates: clause.AssignmentColumns([]string{"program_id", "integral", "previous_error", "last_adjustment", "steps", "updated_at"}),
		}).
		Create(s).Error
}
