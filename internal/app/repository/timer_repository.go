package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/models"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/timer"
)

// TimerRepository 把计时状态存进数据库，实现 timer.Store
type TimerRepository struct {
	DB *gorm.DB
}

var _ timer.Store = (*TimerRepository)(nil)

func NewTimerRepository(db *gorm.DB) *TimerRepository {
	return &TimerRepository{DB: db}
}

// Load 没有记录时返回 timer.ErrNotFound
func (r *TimerRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var row models.TimerState
	err := r.DB.WithContext(ctx).Where("state_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, timer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load timer state: %w", err)
	}
	return []byte(row.Value), nil
}

// Save 按 key upsert
func (r *TimerRepository) Save(ctx context.Context, key string, data []byte) error {
	row := models.TimerState{StateKey: key, Value: datatypes.JSON(data), UpdatedAt: time.Now()}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save timer state: %w", err)
	}
	return nil
}

func (r *TimerRepository) Delete(ctx context.Context, key string) error {
	if err := r.DB.WithContext(ctx).Where("state_key = ?", key).Delete(&models.TimerState{}).Error; err != nil {
		return fmt.Errorf("delete timer state: %w", err)
	}
	return nil
}
