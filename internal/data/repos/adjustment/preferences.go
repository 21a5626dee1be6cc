package adjustment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type PreferencesRepo interface {
	GetOrCreate(dbc dbctx.Context, userID uuid.UUID) (*types.AdjustmentPreferences, error)
	Save(dbc dbctx.Context, p *types.AdjustmentPreferences) error
}

type preferencesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPreferencesRepo(db *gorm.DB, baseLog *logger.Logger) PreferencesRepo {
	return &preferencesRepo{
		db:  db,
		log: baseLog.With("repo", "PreferencesRepo"),
	}
}

// GetOrCreate lazily inserts the default row on first access.
func (r *preferencesRepo) GetOrCreate(dbc dbctx.Context, userID uuid.UUID) (*types.AdjustmentPreferences, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(adjustment.NewDefaultPreferences(userID)).Error; err != nil {
		return nil, err
	}
	var p types.AdjustmentPreferences
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		First(&p).Error; err != nil {
		return nil, err
	}
	if p.TriggerActions == nil {
		p.TriggerActions = map[string]adjustment.Action{}
	}
	return &p, nil
}

func (r *preferencesRepo) Save(dbc dbctx.Context, p *types.AdjustmentPreferences) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Save(p).Error
}
