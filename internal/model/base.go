package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 通用主键与时间戳 (软删除)
type BaseModel struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// DateLayout 账本日期格式 (UTC 自然日)
const DateLayout = "2006-01-02"

// DayOf 取时间所在的 UTC 日期
func DayOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
