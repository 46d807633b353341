package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/postr/internal/config"
	"github.com/roach88/postr/internal/domain"
	"github.com/roach88/postr/internal/feed"
	"github.com/roach88/postr/internal/policy"
	"github.com/roach88/postr/internal/store"
)

// FeedOptions holds flags for the feed command.
type FeedOptions struct {
	*RootOptions
	UserID   string
	PageSize int
	Depth    int
	Cursor   string
}

// NewFeedCommand creates the feed command.
func NewFeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Assemble one page of the home feed from local data",
		Long: `Assemble one page of the home feed from the local database.

Merges the synced timelines of every followed author into a single
deterministically ordered page. Pass the printed cursor back via
--cursor to continue where the previous page ended.

Example:
  postr feed --user u1 --page-size 20
  postr feed --user u1 --cursor MjAyNS0ments...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "acting user id (required)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "posts per page (defaults to config)")
	cmd.Flags().IntVar(&opts.Depth, "depth", 1, "page number, drives load shedding")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "continuation cursor from a previous page")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runFeed(opts *FeedOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = cfg.Feed.PageSize
	}

	pol := policy.Default()
	if cfg.Feed.PolicyFile != "" {
		pol, err = policy.Load(cfg.Feed.PolicyFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load policy", err)
		}
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

	req := feed.Request{UserID: opts.UserID, PageSize: pageSize, Depth: opts.Depth}
	if opts.Cursor != "" {
		cursor, err := feed.ParseCursor(opts.Cursor)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid cursor", err)
		}
		req.Cursor = &cursor
	}

	engine := feed.NewEngine(
		&localSource{store: st, limit: feed.DefaultCacheMaxPosts},
		&localGraph{store: st},
		feed.WithPolicy(pol),
	)

	res, err := engine.Fetch(cmd.Context(), req)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to assemble feed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	payload := feedPayload(res)
	return formatter.Success(payload, func(w io.Writer) {
		renderFeed(w, res)
	})
}

func feedPayload(res feed.Result) map[string]any {
	payload := map[string]any{
		"posts":             res.Posts,
		"degradation_level": int(res.Level),
	}
	if res.NextCursor != nil {
		payload["next_cursor"] = res.NextCursor.Encode()
	}
	return payload
}

func renderFeed(w io.Writer, res feed.Result) {
	for _, p := range res.Posts {
		fmt.Fprintf(w, "%s  @%s  %s\n", p.CreatedAt.Format("2006-01-02 15:04"), p.AuthorID, summarize(p))
	}
	if res.NextCursor != nil {
		fmt.Fprintf(w, "\nNext cursor: %s\n", res.NextCursor.Encode())
	}
	if res.Level > 0 {
		fmt.Fprintf(w, "Degradation level: %d\n", int(res.Level))
	}
}

func summarize(p domain.Post) string {
	const max = 60
	content := p.Content
	if len(content) > max {
		content = content[:max-3] + "..."
	}
	return content
}
