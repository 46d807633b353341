package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/postr/internal/apiclient"
	"github.com/roach88/postr/internal/config"
	"github.com/roach88/postr/internal/events"
	"github.com/roach88/postr/internal/realtime"
	"github.com/roach88/postr/internal/store"
	"github.com/roach88/postr/internal/syncrun"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	UserID string
	APIURL string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run sync cycles on the configured schedule",
		Long: `Run sync cycles on the configured cron schedule until interrupted.

With api.stream_url configured, also subscribes to the server's
realtime stream and prints count updates as they arrive. Stop with
Ctrl-C; an in-flight cycle is aborted at the next phase boundary.

Example:
  postr watch --user u1 --api https://api.postr.example`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "acting user id (required)")
	cmd.Flags().StringVar(&opts.APIURL, "api", "", "API base URL (defaults to config)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = cfg.API.BaseURL
	}
	if apiURL == "" {
		return WrapExitError(ExitCommandError, "no API base URL: pass --api or set api.base_url", nil)
	}
	if cfg.Sync.Schedule == "" && cfg.API.StreamURL == "" {
		return WrapExitError(ExitCommandError, "nothing to watch: set sync.schedule or api.stream_url", nil)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	remote := apiclient.New(apiURL)
	phases := []syncrun.Phase{
		&syncrun.PushComposedPosts{Remote: remote},
		&syncrun.PullHomeTimeline{Graph: remote, Source: remote},
		&syncrun.PruneStalePosts{
			Retention: time.Duration(cfg.Sync.RetentionDays) * 24 * time.Hour,
			MaxRows:   cfg.Sync.MaxRows,
		},
	}

	runner := syncrun.NewRunner(slog.Default())
	scheduler := syncrun.NewScheduler(runner, slog.Default())
	if cfg.Sync.Schedule != "" {
		err := scheduler.Schedule(cfg.Sync.Schedule, phases, func(now time.Time) *syncrun.Context {
			return &syncrun.Context{Store: st, UserID: opts.UserID, Now: now}
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid sync schedule", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus(16)
	updates, cancelSub := bus.Subscribe()
	defer cancelSub()

	if cfg.API.StreamURL != "" {
		sub := realtime.NewSubscriber(cfg.API.StreamURL, bus, slog.Default())
		go func() {
			if err := sub.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("realtime stream stopped", "error", err)
			}
		}()
	}

	scheduler.Start()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Watching; interrupt to stop.")

	for {
		select {
		case <-ctx.Done():
			<-scheduler.Stop().Done()
			return nil
		case u := <-updates:
			printCountUpdate(out, u)
		}
	}
}

func printCountUpdate(w io.Writer, u events.CountUpdate) {
	fmt.Fprintf(w, "%s  likes=%d dislikes=%d laughs=%d reposts=%d comments=%d\n",
		u.PostID,
		u.Counts.Likes,
		u.Counts.Dislikes,
		u.Counts.Laughs,
		u.Counts.Reposts,
		u.Counts.Comments,
	)
}
