package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/backend"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/repository"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/models"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/logger"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/timer"
)

var (
	ErrNoActiveSession  = errors.New("no active session")
	ErrTooShort         = errors.New("duration below minimal threshold")
	ErrSubjectRequired  = errors.New("subject is required")
	ErrInvalidQuestions = errors.New("correct answers cannot exceed questions done")
	ErrInvalidID        = errors.New("ids must be numeric")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrSubmitFailed     = errors.New("submit to backend failed")
)

// Submitter 远端学习记录服务
type Submitter interface {
	Submit(ctx context.Context, rec backend.Record) (*int64, error)
}

// RecordStore 本地学习记录
type RecordStore interface {
	Create(ctx context.Context, rec *models.StudyRecord) error
	ListByVisitor(ctx context.Context, visitorID string, limit int) ([]models.StudyRecord, error)
	Summary(ctx context.Context, visitorID string, days int, now time.Time) (repository.Summary, error)
}

// Details 提交时由用户补充的信息
type Details struct {
	ExamID           *string `json:"exam_id"`
	QuestionsDone    int     `json:"questions_done"`
	QuestionsCorrect int     `json:"questions_correct"`
	CountInCycle     *bool   `json:"count_in_cycle"`
	Notes            string  `json:"notes"`
}

// FinishInput 结束计时并保存；Metadata 中非空字段覆盖会话标签，只用于这条记录，不写回会话
type FinishInput struct {
	Details
	Metadata timer.Metadata `json:"metadata"`
}

// ManualInput 手动录入，Duration 形如 HH:MM:SS
type ManualInput struct {
	Details
	Metadata  timer.Metadata `json:"metadata"`
	StartedAt time.Time      `json:"started_at"`
	Duration  string         `json:"duration"`
}

// DefaultMaxSessions 内存中最多缓存的游客计时器数量
const DefaultMaxSessions = 10000

type Options struct {
	Clock       timer.Clock
	Log         *logger.Logger
	MinSeconds  int64
	MaxSessions int
}

// session 游客的计时器；finish 串行化同一游客的 Finish
type session struct {
	tracker *timer.Tracker
	finish  sync.Mutex
}

// TimerService 每个游客一个计时器，外加学习记录的提交。
// 计时器按 LRU 缓存，被淘汰的游客下次访问时从存储恢复。
type TimerService struct {
	store     timer.Store
	records   RecordStore
	submitter Submitter
	clock     timer.Clock
	log       *logger.Logger
	minSec    int64

	mu       sync.Mutex
	sessions *lru.Cache
}

func NewTimerService(store timer.Store, records RecordStore, submitter Submitter, opts Options) *TimerService {
	if opts.Clock == nil {
		opts.Clock = timer.SystemClock{}
	}
	if opts.MinSeconds < 1 {
		opts.MinSeconds = 1
	}
	if opts.MaxSessions < 1 {
		opts.MaxSessions = DefaultMaxSessions
	}
	cache, err := lru.New(opts.MaxSessions)
	if err != nil {
		// 只有 size <= 0 时才会出错
		panic(err)
	}
	return &TimerService{
		store:     store,
		records:   records,
		submitter: submitter,
		clock:     opts.Clock,
		log:       opts.Log,
		minSec:    opts.MinSeconds,
		sessions:  cache,
	}
}

// StateKey 游客对应的存储 key
func StateKey(visitorID string) string {
	return timer.DefaultKey + ":" + visitorID
}

// Tracker 取出（必要时从存储恢复）游客的计时器
func (s *TimerService) Tracker(ctx context.Context, visitorID string) *timer.Tracker {
	return s.session(ctx, visitorID).tracker
}

// Cached 游客的计时器是否还在内存里
func (s *TimerService) Cached(visitorID string) bool {
	return s.sessions.Contains(visitorID)
}

func (s *TimerService) session(ctx context.Context, visitorID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.sessions.Get(visitorID); ok {
		return v.(*session)
	}
	opts := []timer.Option{timer.WithKey(StateKey(visitorID)), timer.WithClock(s.clock)}
	if s.log != nil {
		opts = append(opts, timer.WithLogger(s.log.With("visitor", visitorID)))
	}
	sess := &session{tracker: timer.New(ctx, s.store, opts...)}
	s.sessions.Add(visitorID, sess)
	return sess
}

// Finish 先读出秒数和标签，提交成功后才结束会话；提交失败时会话保持原样，方便重试。
// 同一游客的 Finish 串行执行；提交期间会话被新的 Start 替换时，新会话保留
func (s *TimerService) Finish(ctx context.Context, visitorID string, in FinishInput) (*models.StudyRecord, error) {
	sess := s.session(ctx, visitorID)
	sess.finish.Lock()
	defer sess.finish.Unlock()

	tr := sess.tracker
	snap := tr.Snapshot()
	if !snap.IsActive {
		return nil, ErrNoActiveSession
	}
	if snap.ElapsedSeconds < s.minSec {
		return nil, ErrTooShort
	}
	startedAt := s.clock.Now().Add(-time.Duration(snap.ElapsedSeconds) * time.Second)
	if snap.StartedAt != nil {
		startedAt = *snap.StartedAt
	}

	rec, err := buildRecord(visitorID, snap.Metadata.Merge(in.Metadata), in.Details, startedAt, snap.ElapsedSeconds)
	if err != nil {
		return nil, err
	}
	rec.Source = models.SourceTimer
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	if !tr.StopIf(ctx, snap.StartedAt) && s.log != nil {
		s.log.Info("session replaced while finishing, keeping the new one", "visitor", visitorID)
	}
	return rec, nil
}

// LogManual 手动录入一条记录，不涉及计时器
func (s *TimerService) LogManual(ctx context.Context, visitorID string, in ManualInput) (*models.StudyRecord, error) {
	secs, err := timer.ParseClock(in.Duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, err)
	}
	if secs < s.minSec {
		return nil, ErrTooShort
	}
	startedAt := in.StartedAt
	if startedAt.IsZero() {
		startedAt = s.clock.Now().Add(-time.Duration(secs) * time.Second)
	}
	rec, err := buildRecord(visitorID, in.Metadata, in.Details, startedAt, secs)
	if err != nil {
		return nil, err
	}
	rec.Source = models.SourceManual
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *TimerService) save(ctx context.Context, rec *models.StudyRecord) error {
	remoteID, err := s.submitter.Submit(ctx, backend.Record{
		SubjectID:        rec.SubjectID,
		TopicID:          rec.TopicID,
		ExamID:           rec.ExamID,
		StudyTypeID:      rec.StudyTypeID,
		StartedAt:        rec.StartedAt,
		Seconds:          rec.Seconds,
		QuestionsDone:    rec.QuestionsDone,
		QuestionsCorrect: rec.QuestionsCorrect,
		CountInCycle:     rec.CountInCycle,
		Notes:            rec.Notes,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	rec.RemoteID = remoteID
	if err := s.records.Create(ctx, rec); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Info("study record saved", "visitor", rec.VisitorID, "seconds", rec.Seconds, "source", rec.Source)
	}
	return nil
}

// Summary 统计，days 为趋势天数
func (s *TimerService) Summary(ctx context.Context, visitorID string, days int) (repository.Summary, error) {
	return s.records.Summary(ctx, visitorID, days, s.clock.Now())
}

// History 最近的学习记录
func (s *TimerService) History(ctx context.Context, visitorID string, limit int) ([]models.StudyRecord, error) {
	return s.records.ListByVisitor(ctx, visitorID, limit)
}

func buildRecord(visitorID string, md timer.Metadata, d Details, startedAt time.Time, secs int64) (*models.StudyRecord, error) {
	if md.SubjectID == nil || strings.TrimSpace(*md.SubjectID) == "" {
		return nil, ErrSubjectRequired
	}
	if d.QuestionsDone < 0 || d.QuestionsCorrect < 0 || d.QuestionsCorrect > d.QuestionsDone {
		return nil, ErrInvalidQuestions
	}
	subject, err := parseID(md.SubjectID)
	if err != nil {
		return nil, err
	}
	topic, err := parseID(md.TopicID)
	if err != nil {
		return nil, err
	}
	studyType, err := parseID(md.StudyTypeID)
	if err != nil {
		return nil, err
	}
	exam, err := parseID(d.ExamID)
	if err != nil {
		return nil, err
	}
	countInCycle := true
	if d.CountInCycle != nil {
		countInCycle = *d.CountInCycle
	}
	return &models.StudyRecord{
		VisitorID:        visitorID,
		SubjectID:        *subject,
		SubjectName:      md.SubjectName,
		TopicID:          topic,
		ExamID:           exam,
		StudyTypeID:      studyType,
		StartedAt:        startedAt.UTC(),
		Seconds:          secs,
		QuestionsDone:    d.QuestionsDone,
		QuestionsCorrect: d.QuestionsCorrect,
		CountInCycle:     countInCycle,
		Notes:            strings.TrimSpace(d.Notes),
	}, nil
}

// parseID 空值返回 nil
func parseID(v *string) (*int64, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(*v), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, *v)
	}
	return &n, nil
}
