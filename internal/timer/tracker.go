// Package timer 实现可持久化的秒表：单个会话，支持暂停/恢复，
// 重启后从存储恢复且不丢精度。
package timer

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultKey 存储中的固定 key
const DefaultKey = "studytimer_state_v2"

// Snapshot 给展示层读取的只读视图
type Snapshot struct {
	IsActive       bool       `json:"is_active"`
	IsPaused       bool       `json:"is_paused"`
	ElapsedSeconds int64      `json:"elapsed_sec"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	Metadata       Metadata   `json:"metadata"`
}

// Running 会话打开且未暂停
func (s Snapshot) Running() bool { return s.IsActive && !s.IsPaused }

// Tracker 维护一个逻辑秒表会话
type Tracker struct {
	mu    sync.Mutex
	store Store
	key   string
	clock Clock
	log   Logger
	state State

	subMu sync.Mutex
	subs  map[int]chan struct{}
	subID int
}

type Option func(*Tracker)

func WithKey(key string) Option { return func(t *Tracker) { t.key = key } }

func WithClock(c Clock) Option { return func(t *Tracker) { t.clock = c } }

func WithLogger(l Logger) Option { return func(t *Tracker) { t.log = l } }

// New 创建 Tracker 并从 store 恢复状态；缺失或损坏时回到未激活的默认状态
func New(ctx context.Context, store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		key:   DefaultKey,
		clock: SystemClock{},
		log:   nopLogger{},
		state: defaultState(),
		subs:  map[int]chan struct{}{},
	}
	for _, o := range opts {
		o(t)
	}
	t.state = t.load(ctx)
	return t
}

// Key 当前使用的存储 key
func (t *Tracker) Key() string { return t.key }

func (t *Tracker) load(ctx context.Context) State {
	data, err := t.store.Load(ctx, t.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			t.log.Warn("timer state load failed", "key", t.key, "error", err)
		}
		return defaultState()
	}
	s, ok := decodeState(data)
	if !ok {
		t.log.Warn("timer state unreadable, resetting", "key", t.key)
		return defaultState()
	}
	return normalize(s, t.clock.Now())
}

// persist 在返回前写入；失败只记录，内存状态仍然有效
func (t *Tracker) persist(ctx context.Context) {
	data, err := encodeState(t.state)
	if err == nil {
		err = t.store.Save(ctx, t.key, data)
	}
	if err != nil {
		t.log.Warn("timer state save failed", "key", t.key, "error", err)
	}
}

// Start 打开新会话，覆盖已有会话
func (t *Tracker) Start(ctx context.Context, md Metadata) {
	t.mu.Lock()
	ms := t.clock.Now().UnixMilli()
	started := ms
	t.state = State{
		Version:              stateVersion,
		IsActive:             true,
		LastStartEpochMillis: &ms,
		StartedEpochMillis:   &started,
		Metadata:             md.clone(),
	}
	t.persist(ctx)
	t.mu.Unlock()
	t.notify()
}

// Pause 把当前片段计入累计秒数；非运行状态下不做任何事并返回 false
func (t *Tracker) Pause(ctx context.Context) bool {
	t.mu.Lock()
	if !t.state.Running() {
		t.mu.Unlock()
		return false
	}
	if t.state.LastStartEpochMillis != nil {
		t.state.AccumulatedSeconds += deltaSeconds(*t.state.LastStartEpochMillis, t.clock.Now())
	}
	t.state.IsPaused = true
	t.state.LastStartEpochMillis = nil
	t.persist(ctx)
	t.mu.Unlock()
	t.notify()
	return true
}

// Resume 重新打点；只在暂停时生效
func (t *Tracker) Resume(ctx context.Context) bool {
	t.mu.Lock()
	if !t.state.IsActive || !t.state.IsPaused {
		t.mu.Unlock()
		return false
	}
	ms := t.clock.Now().UnixMilli()
	t.state.IsPaused = false
	t.state.LastStartEpochMillis = &ms
	t.persist(ctx)
	t.mu.Unlock()
	t.notify()
	return true
}

// Stop 丢弃会话并删除存储条目，可重复调用
func (t *Tracker) Stop(ctx context.Context) {
	t.mu.Lock()
	t.reset(ctx)
	t.mu.Unlock()
	t.notify()
}

// StopIf 只在当前会话仍是 startedAt（取自 Snapshot.StartedAt）开始的那一个时才 Stop。
// 会话已结束或已被新的 Start 替换时返回 false
func (t *Tracker) StopIf(ctx context.Context, startedAt *time.Time) bool {
	t.mu.Lock()
	if !t.state.IsActive || !sameStart(t.state.StartedEpochMillis, startedAt) {
		t.mu.Unlock()
		return false
	}
	t.reset(ctx)
	t.mu.Unlock()
	t.notify()
	return true
}

func sameStart(ms *int64, at *time.Time) bool {
	if ms == nil || at == nil {
		return ms == nil && at == nil
	}
	return *ms == at.UnixMilli()
}

// reset 调用方持有 t.mu
func (t *Tracker) reset(ctx context.Context) {
	t.state = defaultState()
	if err := t.store.Delete(ctx, t.key); err != nil && !errors.Is(err, ErrNotFound) {
		t.log.Warn("timer state delete failed", "key", t.key, "error", err)
	}
}

// UpdateMetadata 合并标签，不影响计时；未激活时忽略
func (t *Tracker) UpdateMetadata(ctx context.Context, partial Metadata) bool {
	t.mu.Lock()
	if !t.state.IsActive {
		t.mu.Unlock()
		return false
	}
	t.state.Metadata = t.state.Metadata.Merge(partial.clone())
	t.persist(ctx)
	t.mu.Unlock()
	t.notify()
	return true
}

// ElapsedSeconds 纯读取，不写存储
func (t *Tracker) ElapsedSeconds() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.elapsedAt(t.clock.Now())
}

// State 返回当前持久化状态的副本
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.clone()
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := Snapshot{
		IsActive:       t.state.IsActive,
		IsPaused:       t.state.IsPaused,
		ElapsedSeconds: t.state.elapsedAt(t.clock.Now()),
		Metadata:       t.state.Metadata.clone(),
	}
	if t.state.IsActive && t.state.StartedEpochMillis != nil {
		at := time.UnixMilli(*t.state.StartedEpochMillis)
		snap.StartedAt = &at
	}
	return snap
}

// Reload 重新读取存储，用于其他进程修改了同一个 key 的情况（最后写入者胜出）
func (t *Tracker) Reload(ctx context.Context) {
	t.mu.Lock()
	t.state = t.load(ctx)
	t.mu.Unlock()
	t.notify()
}

// Subscribe 每次状态变化后收到一个信号；通道容量为 1，连续变化会合并
func (t *Tracker) Subscribe() (<-chan struct{}, func()) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	id := t.subID
	t.subID++
	ch := make(chan struct{}, 1)
	t.subs[id] = ch
	return ch, func() {
		t.subMu.Lock()
		defer t.subMu.Unlock()
		delete(t.subs, id)
	}
}

func (t *Tracker) notify() {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
