package storage

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/timer"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s, err := NewFileStore(fs, "/state")
	require.NoError(t, err)

	_, err = s.Load(ctx, "k")
	assert.ErrorIs(t, err, timer.ErrNotFound)

	require.NoError(t, s.Save(ctx, "k", []byte(`{"a":1}`)))
	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	exists, err := afero.Exists(fs, s.Path("k")+".tmp")
	require.NoError(t, err)
	assert.False(t, exists, "temp file must not linger")

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Load(ctx, "k")
	assert.ErrorIs(t, err, timer.ErrNotFound)
}

func TestFileNameSanitizesKey(t *testing.T) {
	assert.Equal(t, "studytimer_state_v2_abc-1.json", fileName("studytimer_state_v2:abc-1"))
	assert.Equal(t, "a_b_c.json", fileName("a/b\\c"))
}

func TestTrackerSurvivesReloadThroughFileStore(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s, err := NewFileStore(fs, "/state")
	require.NoError(t, err)

	first := timer.New(ctx, s)
	first.Start(ctx, timer.Metadata{SubjectName: timer.String("Math")})
	first.Pause(ctx)

	second := timer.New(ctx, s)
	snap := second.Snapshot()
	assert.True(t, snap.IsActive)
	assert.True(t, snap.IsPaused)
	assert.Equal(t, "Math", *snap.Metadata.SubjectName)

	second.Stop(ctx)
	exists, err := afero.Exists(fs, s.Path(timer.DefaultKey))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWatchSeesExternalWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	s, err := NewFileStore(afero.NewOsFs(), dir)
	require.NoError(t, err)

	other, err := NewFileStore(afero.NewOsFs(), dir)
	require.NoError(t, err)

	var hits atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, "k", 10*time.Millisecond, func() { hits.Add(1) })
	}()

	// 给 watcher 一点时间完成首次扫描
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, other.Save(ctx, "unrelated", []byte("{}")))
	require.NoError(t, other.Save(ctx, "k", []byte("{}")))
	require.Eventually(t, func() bool { return hits.Load() > 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
