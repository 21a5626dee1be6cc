package adjustment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type NotificationRepo interface {
	Create(dbc dbctx.Context, n *types.Notification) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Notification, error)
	ListUserIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	DeleteExpired(dbc dbctx.Context, userID uuid.UUID, now time.Time, createdBefore time.Time) (int64, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{
		db:  db,
		log: baseLog.With("repo", "NotificationRepo"),
	}
}

func (r *notificationRepo) Create(dbc dbctx.Context, n *types.Notification) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(n).Error
}

func (r *notificationRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Notification, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.Notification
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notificationRepo) ListUserIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteExpired removes a user's notifications that expired at or before now or
// were created before createdBefore (the retention cutoff).
func (r *notificationRepo) DeleteExpired(dbc dbctx.Context, userID uuid.UUID, now time.Time, createdBefore time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND ((expires_at IS NOT NULL AND expires_at <= ?) OR created_at < ?)", userID, now.UTC(), createdBefore.UTC()).
		Delete(&types.Notification{})
	return res.RowsAffected, res.Error
}
