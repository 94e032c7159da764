package models

import (
	"time"

	"gorm.io/datatypes"
)

// TimerState 计时器状态的 key-value 行，value 是序列化后的 timer.State
type TimerState struct {
	StateKey  string         `json:"state_key" gorm:"primaryKey;type:varchar(191)"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// 学习记录来源
const (
	SourceTimer  = "timer"
	SourceManual = "manual"
)

// StudyRecord 一次已提交的学习记录（计时结束或手动录入）
type StudyRecord struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	VisitorID        string    `json:"visitor_id" gorm:"type:varchar(64);index"`
	SubjectID        int64     `json:"subject_id"`
	SubjectName      *string   `json:"subject_name"`
	TopicID          *int64    `json:"topic_id"`
	ExamID           *int64    `json:"exam_id"`
	StudyTypeID      *int64    `json:"study_type_id"`
	StartedAt        time.Time `json:"started_at" gorm:"index"`
	Seconds          int64     `json:"seconds"`
	QuestionsDone    int       `json:"questions_done"`
	QuestionsCorrect int       `json:"questions_correct"`
	CountInCycle     bool      `json:"count_in_cycle"`
	Notes            string    `json:"notes" gorm:"type:text"`
	Source           string    `json:"source" gorm:"type:varchar(16)"`
	RemoteID         *int64    `json:"remote_id"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}
