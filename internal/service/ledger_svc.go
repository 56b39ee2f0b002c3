package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/repository"
)

var ErrLedgerDayNotFound = errors.New("该日期没有对账记录")

// maxLedgerRangeDays 单次查询的最大天数
const maxLedgerRangeDays = 93

// LedgerUnits 单个账本商品当日销量
type LedgerUnits struct {
	LedgerProductID int64
	Name            string
	Units           int
}

// LedgerDay 一天的账本与商品销量
type LedgerDay struct {
	Entry model.DailyLedgerEntry
	Units []LedgerUnits
}

// LedgerService 账本只读查询
type LedgerService struct {
	ledgerRepo  repository.LedgerRepository
	productRepo repository.ProductRepository
	platform    string
}

func NewLedgerService(ledgerRepo repository.LedgerRepository, productRepo repository.ProductRepository, platform string) *LedgerService {
	if platform == "" {
		platform = "tiktok"
	}
	return &LedgerService{ledgerRepo: ledgerRepo, productRepo: productRepo, platform: platform}
}

// Days 日期闭区间 [from, to]，格式 2006-01-02
func (s *LedgerService) Days(ctx context.Context, userID int64, from, to string) ([]LedgerDay, error) {
	start, err := time.Parse(model.DateLayout, from)
	if err != nil {
		return nil, ErrInvalidWindow
	}
	end, err := time.Parse(model.DateLayout, to)
	if err != nil || end.Before(start) || end.Sub(start) > maxLedgerRangeDays*24*time.Hour {
		return nil, ErrInvalidWindow
	}

	entries, err := s.ledgerRepo.ListEntries(ctx, userID, s.platform, from, to)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	names := make(map[int64]string)
	days := make([]LedgerDay, 0, len(entries))
	for _, entry := range entries {
		units, err := s.ledgerRepo.ListUnitsByDate(ctx, userID, entry.Date, s.platform)
		if err != nil {
			return nil, fmt.Errorf("list units %s: %w", entry.Date, err)
		}
		day := LedgerDay{Entry: entry, Units: make([]LedgerUnits, 0, len(units))}
		for _, u := range units {
			name, err := s.productName(ctx, userID, u.LedgerProductID, names)
			if err != nil {
				return nil, err
			}
			day.Units = append(day.Units, LedgerUnits{LedgerProductID: u.LedgerProductID, Name: name, Units: u.Units})
		}
		days = append(days, day)
	}
	return days, nil
}

// SyncLog 某日的预估值与结算值对照
func (s *LedgerService) SyncLog(ctx context.Context, userID int64, date string) (*model.SyncLog, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, ErrInvalidWindow
	}
	log, err := s.ledgerRepo.GetSyncLog(ctx, userID, date, s.platform)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLedgerDayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync log: %w", err)
	}
	return log, nil
}

func (s *LedgerService) productName(ctx context.Context, userID, id int64, cache map[int64]string) (string, error) {
	if name, ok := cache[id]; ok {
		return name, nil
	}
	lp, err := s.productRepo.GetLedgerProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cache[id] = ""
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get ledger product %d: %w", id, err)
	}
	name := ""
	if lp.UserID == userID {
		name = lp.Name
	}
	cache[id] = name
	return name, nil
}
