package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/models"
)

type RecordRepository struct {
	DB *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{DB: db}
}

// Create 保存一条学习记录
func (r *RecordRepository) Create(ctx context.Context, rec *models.StudyRecord) error {
	if err := r.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create study record: %w", err)
	}
	return nil
}

// ListByVisitor 按开始时间倒序
func (r *RecordRepository) ListByVisitor(ctx context.Context, visitorID string, limit int) ([]models.StudyRecord, error) {
	var recs []models.StudyRecord
	err := r.DB.WithContext(ctx).
		Where("visitor_id = ?", visitorID).
		Order("started_at DESC").Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list study records: %w", err)
	}
	return recs, nil
}

type DayItem struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
}

type Summary struct {
	TodayMinutes int       `json:"today_minutes"`
	TodayCount   int       `json:"today_count"`
	StreakDays   int       `json:"streak_days"`
	Trend        []DayItem `json:"trend"`
	TotalMinutes int       `json:"total_minutes"`
}

// Summary 今日分钟/次数、近 days 天每天分钟（没有数据的日期补 0）、总分钟、连续天数
// 日期按 now 所在时区划分
func (r *RecordRepository) Summary(ctx context.Context, visitorID string, days int, now time.Time) (Summary, error) {
	var res Summary
	if days < 1 {
		days = 1
	}
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	from := today.AddDate(0, 0, -(days - 1))

	var recent []models.StudyRecord
	err := r.DB.WithContext(ctx).
		Where("visitor_id = ? AND started_at >= ?", visitorID, from).
		Find(&recent).Error
	if err != nil {
		return res, fmt.Errorf("query recent records: %w", err)
	}

	// 先按天累计秒数，最后再换算分钟
	secs := map[string]int64{}
	for _, rec := range recent {
		d := rec.StartedAt.In(loc).Format("2006-01-02")
		secs[d] += rec.Seconds
		if !rec.StartedAt.Before(today) {
			res.TodayCount++
		}
	}
	res.TodayMinutes = int(secs[today.Format("2006-01-02")] / 60)

	res.Trend = make([]DayItem, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i).Format("2006-01-02")
		res.Trend = append(res.Trend, DayItem{Date: d, Minutes: int(secs[d] / 60)})
	}

	// 从今天往前数连续有记录的天数
	for i := 0; i < days; i++ {
		if secs[today.AddDate(0, 0, -i).Format("2006-01-02")] > 0 {
			res.StreakDays++
		} else {
			break
		}
	}

	var total int64
	err = r.DB.WithContext(ctx).Model(&models.StudyRecord{}).
		Where("visitor_id = ?", visitorID).
		Select("COALESCE(SUM(seconds), 0)").
		Scan(&total).Error
	if err != nil {
		return res, fmt.Errorf("sum records: %w", err)
	}
	res.TotalMinutes = int(total / 60)
	return res, nil
}
