package timer

import (
	"encoding/json"
	"time"
)

// 持久化格式版本；未知版本一律按空状态处理
const stateVersion = 2

// Metadata 会话附带的标签，计时器本身不做校验
type Metadata struct {
	SubjectID   *string `json:"subjectId,omitempty"`
	SubjectName *string `json:"subjectName,omitempty"`
	TopicID     *string `json:"topicId,omitempty"`
	StudyTypeID *string `json:"studyTypeId,omitempty"`
}

// Merge 只覆盖 partial 中非 nil 的字段
func (m Metadata) Merge(partial Metadata) Metadata {
	if partial.SubjectID != nil {
		m.SubjectID = partial.SubjectID
	}
	if partial.SubjectName != nil {
		m.SubjectName = partial.SubjectName
	}
	if partial.TopicID != nil {
		m.TopicID = partial.TopicID
	}
	if partial.StudyTypeID != nil {
		m.StudyTypeID = partial.StudyTypeID
	}
	return m
}

// IsZero 所有字段都为空
func (m Metadata) IsZero() bool {
	return m.SubjectID == nil && m.SubjectName == nil && m.TopicID == nil && m.StudyTypeID == nil
}

func (m Metadata) clone() Metadata {
	return Metadata{
		SubjectID:   cloneStr(m.SubjectID),
		SubjectName: cloneStr(m.SubjectName),
		TopicID:     cloneStr(m.TopicID),
		StudyTypeID: cloneStr(m.StudyTypeID),
	}
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// String 便于构造 Metadata 字面量
func String(s string) *string { return &s }

// State 唯一被持久化的实体
//
// 已用时间永远由 AccumulatedSeconds 和 LastStartEpochMillis 推导，
// 不保存“当前秒数”。
type State struct {
	Version              int      `json:"version"`
	IsActive             bool     `json:"isActive"`
	IsPaused             bool     `json:"isPaused"`
	AccumulatedSeconds   int64    `json:"accumulatedSeconds"`
	LastStartEpochMillis *int64   `json:"lastStartEpochMillis,omitempty"`
	StartedEpochMillis   *int64   `json:"startedEpochMillis,omitempty"`
	Metadata             Metadata `json:"metadata"`
}

// Running 会话打开且未暂停
func (s State) Running() bool { return s.IsActive && !s.IsPaused }

func (s State) clone() State {
	c := s
	if s.LastStartEpochMillis != nil {
		v := *s.LastStartEpochMillis
		c.LastStartEpochMillis = &v
	}
	if s.StartedEpochMillis != nil {
		v := *s.StartedEpochMillis
		c.StartedEpochMillis = &v
	}
	c.Metadata = s.Metadata.clone()
	return c
}

func defaultState() State {
	return State{Version: stateVersion}
}

// elapsedAt 在给定时刻推导已用秒数
func (s State) elapsedAt(now time.Time) int64 {
	if !s.IsActive {
		return 0
	}
	if s.IsPaused || s.LastStartEpochMillis == nil {
		return s.AccumulatedSeconds
	}
	return s.AccumulatedSeconds + deltaSeconds(*s.LastStartEpochMillis, now)
}

// deltaSeconds 向下取整；时钟回拨产生的负值按 0 处理
func deltaSeconds(fromMillis int64, now time.Time) int64 {
	d := now.UnixMilli() - fromMillis
	if d <= 0 {
		return 0
	}
	return d / 1000
}

func encodeState(s State) ([]byte, error) {
	s.Version = stateVersion
	return json.Marshal(s)
}

// decodeState 解析存储中的 blob，无法识别时返回 ok=false
func decodeState(data []byte) (State, bool) {
	if len(data) == 0 {
		return defaultState(), false
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return defaultState(), false
	}
	if s.Version != stateVersion {
		return defaultState(), false
	}
	return s, true
}

// normalize 把读回来的状态修正到满足不变量
func normalize(s State, now time.Time) State {
	if !s.IsActive {
		return defaultState()
	}
	if s.AccumulatedSeconds < 0 {
		s.AccumulatedSeconds = 0
	}
	if s.IsPaused {
		s.LastStartEpochMillis = nil
	} else if s.LastStartEpochMillis == nil {
		// 运行中却没有起点，从现在开始计，避免时间跳变
		ms := now.UnixMilli()
		s.LastStartEpochMillis = &ms
	}
	s.Version = stateVersion
	return s
}
