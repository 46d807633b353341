package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/postr/internal/config"
	"github.com/roach88/postr/internal/domain"
	"github.com/roach88/postr/internal/store"
)

// ComposeOptions holds flags for the compose command.
type ComposeOptions struct {
	*RootOptions
	Content string
}

// NewComposeCommand creates the compose command.
func NewComposeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComposeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Queue a post in the offline outbox",
		Long: `Queue a post in the offline outbox.

The post gets a client-generated id that stays stable when the next
sync cycle ships it to the server.

Example:
  postr compose --content "hello from the train"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Content, "content", "", "post content (required)")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

func runCompose(opts *ComposeOptions, cmd *cobra.Command) error {
	if opts.Content == "" {
		return WrapExitError(ExitCommandError, "post content must not be empty", nil)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
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

	now := time.Now()
	post := domain.Post{
		ID:        domain.NewID(),
		Content:   domain.NormalizeContent(opts.Content),
		CreatedAt: now,
	}
	if err := st.EnqueueOutbox(cmd.Context(), post, now); err != nil {
		return WrapExitError(ExitFailure, "failed to queue post", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	payload := map[string]any{"id": post.ID}
	return formatter.Success(payload, func(w io.Writer) {
		fmt.Fprintf(w, "Queued post %s\n", post.ID)
	})
}
