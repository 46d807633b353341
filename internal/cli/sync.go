package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/postr/internal/apiclient"
	"github.com/roach88/postr/internal/config"
	"github.com/roach88/postr/internal/store"
	"github.com/roach88/postr/internal/syncrun"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	UserID string
	APIURL string
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization cycle",
		Long: `Run one synchronization cycle against the remote API.

Pushes offline-composed posts from the outbox, pulls followed authors'
timelines into the local database, and prunes stale rows. A failing
phase is logged and the remaining phases still run.

Example:
  postr sync --user u1 --api https://api.postr.example`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "acting user id (required)")
	cmd.Flags().StringVar(&opts.APIURL, "api", "", "API base URL (defaults to config)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
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
	runner.Run(cmd.Context(), phases, &syncrun.Context{
		Store:  st,
		UserID: opts.UserID,
		Now:    time.Now(),
	})

	count, err := st.CountPosts(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "sync finished but post count failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	summary := map[string]any{"posts": count, "user": opts.UserID}
	return formatter.Success(summary, func(w io.Writer) {
		fmt.Fprintf(w, "Sync complete: %d posts in local database\n", count)
	})
}
