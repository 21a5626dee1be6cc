package adherence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

// AdherenceRecordRepo is append-only; records are never updated or deleted.
type AdherenceRecordRepo interface {
	InsertIfAbsent(dbc dbctx.Context, rec *types.AdherenceRecord) (bool, error)
	GetByDedupeKey(dbc dbctx.Context, key string) (*types.AdherenceRecord, error)
	ListByUserDateRange(dbc dbctx.Context, userID uuid.UUID, startDate, endDate string, category string) ([]*types.AdherenceRecord, error)
	PlannedRefsOnDate(dbc dbctx.Context, userID uuid.UUID, date string) (map[uuid.UUID]bool, error)
}

type adherenceRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdherenceRecordRepo(db *gorm.DB, baseLog *logger.Logger) AdherenceRecordRepo {
	return &adherenceRecordRepo{
		db:  db,
		log: baseLog.With("repo", "AdherenceRecordRepo"),
	}
}

// InsertIfAbsent inserts rec unless a record with the same dedupe key exists.
// It reports whether a row was written.
func (r *adherenceRecordRepo) InsertIfAbsent(dbc dbctx.Context, rec *types.AdherenceRecord) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *adherenceRecordRepo) GetByDedupeKey(dbc dbctx.Context, key string) (*types.AdherenceRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rec types.AdherenceRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("dedupe_key = ?", key).
		Limit(1).
		Find(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

// ListByUserDateRange is inclusive on both dates. An empty category returns both.
func (r *adherenceRecordRepo) ListByUserDateRange(dbc dbctx.Context, userID uuid.UUID, startDate, endDate string, category string) ([]*types.AdherenceRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND record_date >= ? AND record_date <= ?", userID, startDate, endDate)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var out []*types.AdherenceRecord
	if err := q.Order("record_date ASC, created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// PlannedRefsOnDate returns the planned item ids that already have a record on date.
func (r *adherenceRecordRepo) PlannedRefsOnDate(dbc dbctx.Context, userID uuid.UUID, date string) (map[uuid.UUID]bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.AdherenceRecord{}).
		Where("user_id = ? AND record_date = ?", userID, date).
		Pluck("planned_ref_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
