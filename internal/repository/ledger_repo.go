package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"accelerator_sync_v1/internal/model"
)

// LedgerRepository 每日账本、商品销量、对账日志
type LedgerRepository interface {
	// UpsertSyncFields 新行整行插入；已有行只更新同步字段，手填字段不动
	UpsertSyncFields(ctx context.Context, entry *model.DailyLedgerEntry) (*model.DailyLedgerEntry, error)
	GetEntry(ctx context.Context, userID int64, date, platform string) (*model.DailyLedgerEntry, error)
	ListEntries(ctx context.Context, userID int64, platform, from, to string) ([]model.DailyLedgerEntry, error)

	UpsertUnits(ctx context.Context, units *model.DailyProductUnits) error
	ListUnitsByDate(ctx context.Context, userID int64, date, platform string) ([]model.DailyProductUnits, error)

	UpsertSyncLog(ctx context.Context, log *model.SyncLog) error
	GetSyncLog(ctx context.Context, userID int64, date, platform string) (*model.SyncLog, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

var ledgerKey = []clause.Column{{Name: "user_id"}, {Name: "date"}, {Name: "platform"}}

func (r *ledgerRepository) UpsertSyncFields(ctx context.Context, entry *model.DailyLedgerEntry) (*model.DailyLedgerEntry, error) {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   ledgerKey,
		DoUpdates: clause.AssignmentColumns(model.LedgerSyncColumns),
	}).Create(entry).Error
	if err != nil {
		return nil, err
	}
	return r.GetEntry(ctx, entry.UserID, entry.Date, entry.Platform)
}

func (r *ledgerRepository) GetEntry(ctx context.Context, userID int64, date, platform string) (*model.DailyLedgerEntry, error) {
	var entry model.DailyLedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ? AND platform = ?", userID, date, platform).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntries 日期闭区间，格式 2006-01-02 可直接按字符串比较
func (r *ledgerRepository) ListEntries(ctx context.Context, userID int64, platform, from, to string) ([]model.DailyLedgerEntry, error) {
	var list []model.DailyLedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ? AND date >= ? AND date <= ?", userID, platform, from, to).
		Order("date ASC").
		Find(&list).Error
	return list, err
}

func (r *ledgerRepository) UpsertUnits(ctx context.Context, units *model.DailyProductUnits) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "ledger_product_id"}, {Name: "date"}, {Name: "platform"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"units", "ledger_entry_id", "updated_at"}),
		}).
		Create(units).Error
}

func (r *ledgerRepository) ListUnitsByDate(ctx context.Context, userID int64, date, platform string) ([]model.DailyProductUnits, error) {
	var list []model.DailyProductUnits
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ? AND platform = ?", userID, date, platform).
		Order("ledger_product_id ASC").
		Find(&list).Error
	return list, err
}

func (r *ledgerRepository) UpsertSyncLog(ctx context.Context, log *model.SyncLog) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: ledgerKey, UpdateAll: true}).
		Create(log).Error
}

func (r *ledgerRepository) GetSyncLog(ctx context.Context, userID int64, date, platform string) (*model.SyncLog, error) {
	var log model.SyncLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ? AND platform = ?", userID, date, platform).
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}
