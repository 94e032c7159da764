// Package storage 提供基于文件的计时状态存储，相当于浏览器的 localStorage
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/spf13/afero"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/timer"
)

// FileStore 每个 key 一个 JSON 文件
type FileStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

var _ timer.Store = (*FileStore)(nil)

// NewFileStore 确保目录存在
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

// Dir 状态文件所在目录
func (s *FileStore) Dir() string { return s.dir }

// Path key 对应的文件路径
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

// fileName 把 key 中不适合做文件名的字符换成下划线
func fileName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String() + ".json"
}

func (s *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := afero.ReadFile(s.fs, s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, timer.ErrNotFound
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return data, nil
}

// Save 先写临时文件再 rename，避免读到半截内容
func (s *FileStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.Path(key)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Delete 文件不存在不算错误
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(s.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}

// Watch 轮询目录，key 对应的文件被其他进程改动时调用 fn。
// 只能用于真实文件系统（afero.OsFs），阻塞到 ctx 结束。
func (s *FileStore) Watch(ctx context.Context, key string, interval time.Duration, fn func()) error {
	w := watcher.New()
	w.FilterOps(watcher.Write, watcher.Create, watcher.Remove, watcher.Rename, watcher.Move)
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch state dir: %w", err)
	}

	name := fileName(key)
	errc := make(chan error, 1)
	go func() {
		// Start 真正运行之后 Close 才有效
		w.Wait()
		for {
			select {
			case ev := <-w.Event:
				if filepath.Base(ev.Path) == name || filepath.Base(ev.OldPath) == name {
					fn()
				}
			case err := <-w.Error:
				if errors.Is(err, watcher.ErrWatchedFileDeleted) {
					errc <- err
					w.Close()
					return
				}
			case <-w.Closed:
				return
			case <-ctx.Done():
				w.Close()
				return
			}
		}
	}()

	if err := w.Start(interval); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}
