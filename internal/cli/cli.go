// Package cli 是 studytimer 命令行客户端，状态保存在本地文件里
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/logger"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/storage"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/timer"
)

var (
	errNotRunning = errors.New("timer is not running")
	errNotPaused  = errors.New("timer is not paused")
	errInactive   = errors.New("no active session")
)

// Env 命令运行所需的依赖
type Env struct {
	Fs    afero.Fs
	Dir   string
	Key   string
	Clock timer.Clock
	Log   *logger.Logger
}

func (e *Env) open(ctx context.Context) (*timer.Tracker, *storage.FileStore, error) {
	fs, err := storage.NewFileStore(e.Fs, e.Dir)
	if err != nil {
		return nil, nil, err
	}
	opts := []timer.Option{timer.WithKey(e.Key)}
	if e.Clock != nil {
		opts = append(opts, timer.WithClock(e.Clock))
	}
	if e.Log != nil {
		opts = append(opts, timer.WithLogger(e.Log))
	}
	return timer.New(ctx, fs, opts...), fs, nil
}

// NewRootCmd 构建命令树
func NewRootCmd(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "studytimer",
		Short:         "A stopwatch for study sessions that survives restarts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newStartCmd(env),
		newTransitionCmd(env, "pause", "Pause the running session", func(ctx context.Context, t *timer.Tracker) error {
			if !t.Pause(ctx) {
				return errNotRunning
			}
			return nil
		}),
		newTransitionCmd(env, "resume", "Resume a paused session", func(ctx context.Context, t *timer.Tracker) error {
			if !t.Resume(ctx) {
				return errNotPaused
			}
			return nil
		}),
		newTransitionCmd(env, "stop", "Discard the current session", func(ctx context.Context, t *timer.Tracker) error {
			t.Stop(ctx)
			return nil
		}),
		newStatusCmd(env),
		newMetaCmd(env),
		newWatchCmd(env),
	)
	return root
}

type metaFlags struct {
	subjectID, subject, topic, studyType string
}

func (f *metaFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.subjectID, "subject-id", "", "subject id")
	cmd.Flags().StringVar(&f.subject, "subject", "", "subject display name")
	cmd.Flags().StringVar(&f.topic, "topic", "", "topic id")
	cmd.Flags().StringVar(&f.studyType, "study-type", "", "study type id")
}

// metadata 只包含显式传入的参数
func (f *metaFlags) metadata(cmd *cobra.Command) timer.Metadata {
	var md timer.Metadata
	set := func(name, v string, dst **string) {
		if cmd.Flags().Changed(name) {
			*dst = timer.String(v)
		}
	}
	set("subject-id", f.subjectID, &md.SubjectID)
	set("subject", f.subject, &md.SubjectName)
	set("topic", f.topic, &md.TopicID)
	set("study-type", f.studyType, &md.StudyTypeID)
	return md
}

func newStartCmd(env *Env) *cobra.Command {
	var f metaFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new session, replacing any current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, _, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			t.Start(cmd.Context(), f.metadata(cmd))
			printLine(cmd.OutOrStdout(), t.Snapshot())
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newTransitionCmd(env *Env, use, short string, fn func(context.Context, *timer.Tracker) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, _, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := fn(cmd.Context(), t); err != nil {
				return err
			}
			printLine(cmd.OutOrStdout(), t.Snapshot())
			return nil
		},
	}
}

func newStatusCmd(env *Env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, _, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			snap := t.Snapshot()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			printLine(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newMetaCmd(env *Env) *cobra.Command {
	var f metaFlags
	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Change labels of the current session without touching the time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, _, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			if !t.UpdateMetadata(cmd.Context(), f.metadata(cmd)) {
				return errInactive
			}
			printLine(cmd.OutOrStdout(), t.Snapshot())
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newWatchCmd(env *Env) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live clock until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			t, fs, err := env.open(ctx)
			if err != nil {
				return err
			}
			// 其他终端里执行 pause/resume 时同步过来
			go func() {
				if err := fs.Watch(ctx, t.Key(), interval, func() { t.Reload(ctx) }); err != nil && env.Log != nil {
					env.Log.Warn("state file watch stopped", "error", err)
				}
			}()
			out := cmd.OutOrStdout()
			timer.Refresh(ctx, t, time.Second, func(s timer.Snapshot) {
				fmt.Fprintf(out, "\r%s", line(s))
			})
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "poll", 500*time.Millisecond, "how often to check the state file for changes")
	return cmd
}

func line(s timer.Snapshot) string {
	status := "idle"
	switch {
	case s.Running():
		status = "running"
	case s.IsPaused:
		status = "paused"
	}
	parts := []string{timer.FormatClock(s.ElapsedSeconds), status}
	if s.Metadata.SubjectName != nil {
		parts = append(parts, *s.Metadata.SubjectName)
	} else if s.Metadata.SubjectID != nil {
		parts = append(parts, "subject "+*s.Metadata.SubjectID)
	}
	return strings.Join(parts, "  ")
}

func printLine(w io.Writer, s timer.Snapshot) {
	fmt.Fprintln(w, line(s))
}
